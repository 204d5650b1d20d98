package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"compass/pkg/artifacts"
	"compass/pkg/journey"
	"compass/pkg/progression"
)

// LoadBuyer fetches a buyer row. Missing rows return ErrBuyerNotFound.
func (s *Store) LoadBuyer(ctx context.Context, buyerID string) (progression.Buyer, error) {
	var buyer progression.Buyer
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, current_stage FROM buyers WHERE id = ?", buyerID,
	).Scan(&buyer.ID, &buyer.Name, &buyer.CurrentStage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progression.Buyer{}, fmt.Errorf("buyer %s: %w", buyerID, ErrBuyerNotFound)
		}
		return progression.Buyer{}, fmt.Errorf("failed to load buyer %s: %w", buyerID, err)
	}
	return buyer, nil
}

// SaveBuyerStage persists a buyer's stage pointer. The row must exist:
// stage pointers are only ever moved for known buyers.
func (s *Store) SaveBuyerStage(ctx context.Context, buyerID string, stageNumber int) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE buyers SET current_stage = ?, updated_at = ? WHERE id = ?",
		stageNumber, time.Now().UTC(), buyerID,
	)
	if err != nil {
		return fmt.Errorf("failed to save stage %d for buyer %s: %w", stageNumber, buyerID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check stage update for buyer %s: %w", buyerID, err)
	}
	if rows == 0 {
		return fmt.Errorf("buyer %s: %w", buyerID, ErrBuyerNotFound)
	}
	return nil
}

// UpsertBuyer inserts or updates a buyer record.
func (s *Store) UpsertBuyer(ctx context.Context, buyer progression.Buyer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buyers (id, name, current_stage)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			current_stage = excluded.current_stage,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
	`, buyer.ID, buyer.Name, buyer.CurrentStage)
	if err != nil {
		return fmt.Errorf("failed to upsert buyer %s: %w", buyer.ID, err)
	}
	return nil
}

// ListBuyers returns all buyers ordered by name.
func (s *Store) ListBuyers(ctx context.Context) ([]progression.Buyer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, current_stage FROM buyers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list buyers: %w", err)
	}
	defer rows.Close()

	var buyers []progression.Buyer
	for rows.Next() {
		var buyer progression.Buyer
		if err := rows.Scan(&buyer.ID, &buyer.Name, &buyer.CurrentStage); err != nil {
			return nil, fmt.Errorf("failed to scan buyer row: %w", err)
		}
		buyers = append(buyers, buyer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buyer rows: %w", err)
	}
	return buyers, nil
}

// LoadCompletionRecords returns the completion cells for a buyer and
// stage as an index -> completed map. Missing rows simply don't appear.
func (s *Store) LoadCompletionRecords(ctx context.Context, buyerID string, stageNumber int) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT criterion_index, completed FROM completion_records WHERE buyer_id = ? AND stage_number = ?",
		buyerID, stageNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load completion records for buyer %s stage %d: %w", buyerID, stageNumber, err)
	}
	defer rows.Close()

	records := make(map[int]bool)
	for rows.Next() {
		var index int
		var completed bool
		if err := rows.Scan(&index, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan completion record: %w", err)
		}
		records[index] = completed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completion records: %w", err)
	}
	return records, nil
}

// SaveCompletionRecord upserts one criterion cell, last write wins.
func (s *Store) SaveCompletionRecord(ctx context.Context, buyerID string, stageNumber, criterionIndex int, completed bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completion_records (buyer_id, stage_number, criterion_index, completed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(buyer_id, stage_number, criterion_index) DO UPDATE SET
			completed = excluded.completed,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
	`, buyerID, stageNumber, criterionIndex, completed)
	if err != nil {
		return fmt.Errorf("failed to save completion record buyer=%s stage=%d index=%d: %w",
			buyerID, stageNumber, criterionIndex, err)
	}
	return nil
}

// LoadStageCatalog builds the catalog from the stages table. An unseeded
// table returns ErrCatalogEmpty so the caller can fall back to a seed
// file.
func (s *Store) LoadStageCatalog(ctx context.Context) (*journey.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT number, name, objective, icon, criteria FROM stages ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("failed to load stage catalog: %w", err)
	}
	defer rows.Close()

	var stages []journey.Stage
	for rows.Next() {
		var stage journey.Stage
		var criteriaJSON string
		if err := rows.Scan(&stage.Number, &stage.Name, &stage.Objective, &stage.Icon, &criteriaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan stage row: %w", err)
		}
		if err := json.Unmarshal([]byte(criteriaJSON), &stage.CompletionCriteria); err != nil {
			return nil, fmt.Errorf("failed to decode criteria for stage %d: %w", stage.Number, err)
		}
		stages = append(stages, stage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stage rows: %w", err)
	}
	if len(stages) == 0 {
		return nil, ErrCatalogEmpty
	}

	catalog, err := journey.NewCatalog(stages)
	if err != nil {
		return nil, fmt.Errorf("stored stage catalog is invalid: %w", err)
	}
	return catalog, nil
}

// SeedStageCatalog writes the catalog to the stages table in one
// transaction, replacing any prior seed. Used by administrator tooling;
// the runtime never writes stages.
func (s *Store) SeedStageCatalog(ctx context.Context, catalog *journey.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stages"); err != nil {
		return fmt.Errorf("failed to clear stages table: %w", err)
	}

	for _, stage := range catalog.ListStages() {
		criteriaJSON, err := json.Marshal(stage.CompletionCriteria)
		if err != nil {
			return fmt.Errorf("failed to encode criteria for stage %d: %w", stage.Number, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stages (number, name, objective, icon, criteria)
			VALUES (?, ?, ?, ?, ?)
		`, stage.Number, stage.Name, stage.Objective, stage.Icon, string(criteriaJSON)); err != nil {
			return fmt.Errorf("failed to insert stage %d: %w", stage.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog seed: %w", err)
	}
	s.logger.Info("Stage catalog seeded: %d stages", len(catalog.ListStages()))
	return nil
}

// SaveArtifact inserts or updates an artifact record.
func (s *Store) SaveArtifact(ctx context.Context, artifact artifacts.Artifact) error {
	blocksJSON, err := json.Marshal(artifact.Blocks)
	if err != nil {
		return fmt.Errorf("failed to encode blocks for artifact %s: %w", artifact.ID, err)
	}

	createdAt := artifact.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, buyer_id, title, stage_number, visibility, blocks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			stage_number = excluded.stage_number,
			visibility = excluded.visibility,
			blocks = excluded.blocks
	`, artifact.ID, artifact.BuyerID, artifact.Title, artifact.StageNumber,
		artifact.Visibility, string(blocksJSON), createdAt)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", artifact.ID, err)
	}
	return nil
}

// ListArtifacts returns all artifacts for a buyer, newest first.
func (s *Store) ListArtifacts(ctx context.Context, buyerID string) ([]artifacts.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, buyer_id, title, stage_number, visibility, blocks, created_at
		FROM artifacts WHERE buyer_id = ? ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts for buyer %s: %w", buyerID, err)
	}
	defer rows.Close()

	var list []artifacts.Artifact
	for rows.Next() {
		var artifact artifacts.Artifact
		var stageNumber sql.NullInt64
		var blocksJSON string
		if err := rows.Scan(&artifact.ID, &artifact.BuyerID, &artifact.Title,
			&stageNumber, &artifact.Visibility, &blocksJSON, &artifact.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		if stageNumber.Valid {
			n := int(stageNumber.Int64)
			artifact.StageNumber = &n
		}
		if err := json.Unmarshal([]byte(blocksJSON), &artifact.Blocks); err != nil {
			return nil, fmt.Errorf("failed to decode blocks for artifact %s: %w", artifact.ID, err)
		}
		list = append(list, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifact rows: %w", err)
	}
	return list, nil
}

// GetArtifact fetches one artifact by ID.
func (s *Store) GetArtifact(ctx context.Context, artifactID string) (artifacts.Artifact, error) {
	var artifact artifacts.Artifact
	var stageNumber sql.NullInt64
	var blocksJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, buyer_id, title, stage_number, visibility, blocks, created_at
		FROM artifacts WHERE id = ?
	`, artifactID).Scan(&artifact.ID, &artifact.BuyerID, &artifact.Title,
		&stageNumber, &artifact.Visibility, &blocksJSON, &artifact.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return artifacts.Artifact{}, fmt.Errorf("artifact %s: %w", artifactID, ErrArtifactNotFound)
		}
		return artifacts.Artifact{}, fmt.Errorf("failed to load artifact %s: %w", artifactID, err)
	}
	if stageNumber.Valid {
		n := int(stageNumber.Int64)
		artifact.StageNumber = &n
	}
	if err := json.Unmarshal([]byte(blocksJSON), &artifact.Blocks); err != nil {
		return artifacts.Artifact{}, fmt.Errorf("failed to decode blocks for artifact %s: %w", artifactID, err)
	}
	return artifact, nil
}
