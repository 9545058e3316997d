package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

type nodeRunRepo struct {
	pool *pgxpool.Pool
}

// NewNodeRunRepository creates a new NodeRunRepository
func NewNodeRunRepository(pool *pgxpool.Pool) ports.NodeRunRepository {
	return &nodeRunRepo{pool: pool}
}

const nodeRunColumns = `id, created_at, node_type, node_id, pipeline_id, execution_id,
	action, input_ids, output_id, details`

func (r *nodeRunRepo) Create(ctx context.Context, run *domain.NodeRun) error {
	inputIDs, err := json.Marshal(nonNilStrings(run.InputIDs))
	if err != nil {
		return fmt.Errorf("marshal input ids: %w", err)
	}
	details, err := json.Marshal(nonNilMap(run.Details))
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	query := `
		INSERT INTO node_run (` + nodeRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID, run.CreatedAt, string(run.NodeType),
		run.NodeID, run.PipelineID, run.ExecutionID,
		run.Action, inputIDs, run.OutputID, details,
	)
	if err != nil {
		return fmt.Errorf("insert node run: %w", err)
	}
	return nil
}

func (r *nodeRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.NodeRun, error) {
	query := `SELECT ` + nodeRunColumns + ` FROM node_run WHERE id = $1`

	run, err := scanNodeRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNodeRunNotFound
		}
		return nil, fmt.Errorf("get node run: %w", err)
	}
	return run, nil
}

func (r *nodeRunRepo) List(ctx context.Context, filter ports.NodeRunListFilter) ([]*domain.NodeRun, int, error) {
	whereClause, args := nodeRunWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM node_run WHERE " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count node runs: %w", err)
	}

	argPos := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s
		FROM node_run
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, nodeRunColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list node runs: %w", err)
	}
	defer rows.Close()

	runs := []*domain.NodeRun{}
	for rows.Next() {
		run, err := scanNodeRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan node run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate node run rows: %w", err)
	}

	return runs, total, nil
}

// nodeRunWhere builds the WHERE clause of List. Placeholders start at $1.
func nodeRunWhere(filter ports.NodeRunListFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	add := func(column string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if filter.NodeType != "" {
		add("node_type", string(filter.NodeType))
	}
	if filter.PipelineID != "" {
		add("pipeline_id", filter.PipelineID)
	}
	if filter.ExecutionID != "" {
		add("execution_id", filter.ExecutionID)
	}
	if filter.Action != "" {
		add("action", filter.Action)
	}

	if len(conditions) == 0 {
		return "1=1", args
	}
	return strings.Join(conditions, " AND "), args
}

func scanNodeRun(row pgx.Row) (*domain.NodeRun, error) {
	var (
		run      domain.NodeRun
		nodeType string
		inputIDs []byte
		details  []byte
	)
	err := row.Scan(
		&run.ID, &run.CreatedAt, &nodeType,
		&run.NodeID, &run.PipelineID, &run.ExecutionID,
		&run.Action, &inputIDs, &run.OutputID, &details,
	)
	if err != nil {
		return nil, err
	}
	run.NodeType = domain.NodeType(nodeType)

	if err := decodeJSONB(inputIDs, &run.InputIDs); err != nil {
		return nil, fmt.Errorf("decode input ids: %w", err)
	}
	if err := decodeJSONB(details, &run.Details); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	run.InputIDs = nonNilStrings(run.InputIDs)
	run.Details = nonNilMap(run.Details)
	return &run, nil
}

func decodeJSONB(raw []byte, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// Ensure interface compliance
var _ ports.NodeRunRepository = (*nodeRunRepo)(nil)
