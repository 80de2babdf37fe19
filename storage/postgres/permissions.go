package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daybeamapp/golfkit/entitlements"
)

// PermissionStore persists permission records in Postgres. The upsert is a
// single INSERT ... ON CONFLICT, so row-level atomicity comes from Postgres
// and concurrent writers resolve last-write-wins.
type PermissionStore struct {
	pg     *pgxpool.Pool
	schema string
}

func NewPermissionStore(pg *pgxpool.Pool, schema string) *PermissionStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "public"
	}
	return &PermissionStore{pg: pg, schema: s}
}

func (s *PermissionStore) table() string { return s.schema + ".user_permissions" }

func (s *PermissionStore) Get(ctx context.Context, profileID, permissionID string) (entitlements.Permission, bool, error) {
	var p entitlements.Permission
	var metadata []byte
	err := s.pg.QueryRow(ctx,
		`SELECT profile_id, permission_id, active, expires_at, product_id, platform, revenuecat_user_id, metadata
		 FROM `+s.table()+` WHERE profile_id=$1 AND permission_id=$2`,
		profileID, permissionID,
	).Scan(&p.ProfileID, &p.PermissionID, &p.Active, &p.ExpiresAt, &p.ProductID, &p.Platform, &p.RevenueCatUserID, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return entitlements.Permission{}, false, nil
	}
	if err != nil {
		return entitlements.Permission{}, false, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return entitlements.Permission{}, false, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return p, true, nil
}

func (s *PermissionStore) Upsert(ctx context.Context, p entitlements.Permission) error {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.pg.Exec(ctx,
		`INSERT INTO `+s.table()+` (profile_id, permission_id, active, expires_at, product_id, platform, revenuecat_user_id, metadata, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (profile_id, permission_id) DO UPDATE SET
		   active=EXCLUDED.active,
		   expires_at=EXCLUDED.expires_at,
		   product_id=EXCLUDED.product_id,
		   platform=EXCLUDED.platform,
		   revenuecat_user_id=EXCLUDED.revenuecat_user_id,
		   metadata=EXCLUDED.metadata,
		   updated_at=NOW()`,
		p.ProfileID, p.PermissionID, p.Active, p.ExpiresAt, p.ProductID, string(p.Platform), p.RevenueCatUserID, metadata,
	)
	return err
}

func (s *PermissionStore) ListByProfile(ctx context.Context, profileID string) ([]entitlements.Permission, error) {
	rows, err := s.pg.Query(ctx,
		`SELECT profile_id, permission_id, active, expires_at, product_id, platform, revenuecat_user_id, metadata
		 FROM `+s.table()+` WHERE profile_id=$1 ORDER BY permission_id`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []entitlements.Permission
	for rows.Next() {
		var p entitlements.Permission
		var metadata []byte
		if err := rows.Scan(&p.ProfileID, &p.PermissionID, &p.Active, &p.ExpiresAt, &p.ProductID, &p.Platform, &p.RevenueCatUserID, &metadata); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PermissionStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx,
		`UPDATE `+s.table()+` SET
		   active=FALSE,
		   metadata = metadata || jsonb_build_object('status', 'expired', 'expired_at', to_char($1::timestamptz at time zone 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')),
		   updated_at=NOW()
		 WHERE active AND expires_at IS NOT NULL AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
