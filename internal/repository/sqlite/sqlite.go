package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"netpanel/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps an
	// in-memory database alive across calls
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode = WAL`, `PRAGMA busy_timeout = 5000`} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS machines (
		uuid TEXT PRIMARY KEY,
		group_name TEXT,
		group_member_id INTEGER,
		domain TEXT,
		port INTEGER,
		state TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS panel_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		nodes JSON NOT NULL,
		viewport JSON,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS intnets (
		uuid TEXT PRIMARY KEY,
		number INTEGER NOT NULL DEFAULT 0,
		machines JSON NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		uuid TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		deletable INTEGER NOT NULL DEFAULT 1,
		nodes JSON,
		intnets JSON,
		viewport JSON,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_machines_group ON machines(group_name, group_member_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ============================================================================
// Active configuration
// ============================================================================

// GetPanelState returns the saved canvas layout, or an empty layout with
// the default viewport when nothing was saved yet
func (r *Repository) GetPanelState(ctx context.Context) (*domain.PanelState, error) {
	var nodesJSON, viewportJSON sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT nodes, viewport FROM panel_state WHERE id = 1
	`).Scan(&nodesJSON, &viewportJSON)

	state := &domain.PanelState{Nodes: []domain.Node{}, Viewport: domain.DefaultViewport()}
	if err == sql.ErrNoRows {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query panel state: %w", err)
	}

	if err := unmarshalJSONField(nodesJSON, &state.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}
	if err := unmarshalJSONField(viewportJSON, &state.Viewport); err != nil {
		return nil, fmt.Errorf("failed to unmarshal viewport: %w", err)
	}
	state.Viewport = state.Viewport.Normalize()
	return state, nil
}

// SavePanelState replaces the saved canvas layout
func (r *Repository) SavePanelState(ctx context.Context, state domain.PanelState) error {
	nodes := state.Nodes
	if nodes == nil {
		nodes = []domain.Node{}
	}
	nodesJSON, err := marshalToNull(nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}
	viewportJSON, err := marshalToNull(state.Viewport.Normalize())
	if err != nil {
		return fmt.Errorf("failed to marshal viewport: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO panel_state (id, nodes, viewport, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			nodes = excluded.nodes,
			viewport = excluded.viewport,
			updated_at = CURRENT_TIMESTAMP
	`, nodesJSON, viewportJSON)
	if err != nil {
		return fmt.Errorf("failed to save panel state: %w", err)
	}
	return nil
}

// GetIntnets returns the active intnet membership configuration
func (r *Repository) GetIntnets(ctx context.Context) (domain.IntnetConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, number, machines FROM intnets ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query intnets: %w", err)
	}
	defer rows.Close()

	intnets := make(domain.IntnetConfig)
	for rows.Next() {
		var (
			uuid         string
			number       int
			machinesJSON sql.NullString
		)
		if err := rows.Scan(&uuid, &number, &machinesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan intnet: %w", err)
		}

		entry := domain.IntnetEntry{UUID: uuid, Number: number, Machines: []string{}}
		if err := unmarshalJSONField(machinesJSON, &entry.Machines); err != nil {
			return nil, fmt.Errorf("failed to unmarshal intnet %s machines: %w", uuid, err)
		}
		intnets[uuid] = entry
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intnets: %w", err)
	}
	return intnets, nil
}

// ReplaceIntnets replaces the active intnet membership configuration
func (r *Repository) ReplaceIntnets(ctx context.Context, intnets domain.IntnetConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM intnets`); err != nil {
		return fmt.Errorf("failed to clear intnets: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO intnets (uuid, number, machines, position) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, entry := range intnets.Sorted() {
		machines := entry.Machines
		if machines == nil {
			machines = []string{}
		}
		machinesJSON, err := marshalToNull(machines)
		if err != nil {
			return fmt.Errorf("failed to marshal intnet %s machines: %w", entry.UUID, err)
		}
		if _, err := stmt.ExecContext(ctx, entry.UUID, entry.Number, machinesJSON, i); err != nil {
			return fmt.Errorf("failed to insert intnet %s: %w", entry.UUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ============================================================================
// Snapshots
// ============================================================================

// ListSnapshots returns all snapshots, oldest first
func (r *Repository) ListSnapshots(ctx context.Context) ([]domain.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]domain.Snapshot, 0)
	for rows.Next() {
		var row snapshotRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", row.UUID, err)
		}
		snapshots = append(snapshots, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// GetSnapshot retrieves a single snapshot by uuid
func (r *Repository) GetSnapshot(ctx context.Context, uuid string) (*domain.Snapshot, error) {
	var row snapshotRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots WHERE uuid = ?
	`, uuid).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s: %w", uuid, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	s, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", uuid, err)
	}
	return s, nil
}

// CreateSnapshot inserts a snapshot. The uuid and creation time must be set
// by the caller.
func (r *Repository) CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	args, err := snapshotInsertArgs(snapshot)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("snapshot %q: %w", snapshot.Name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// RenameSnapshot changes a snapshot's name
func (r *Repository) RenameSnapshot(ctx context.Context, uuid, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE snapshots SET name = ? WHERE uuid = ?`, name, uuid)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("snapshot %q: %w", name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return expectAffected(result, "snapshot", uuid)
}

// DeleteSnapshot removes a snapshot
func (r *Repository) DeleteSnapshot(ctx context.Context, uuid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return expectAffected(result, "snapshot", uuid)
}

// ============================================================================
// Machines
// ============================================================================

// ListMachines returns the machine inventory ordered by group
func (r *Repository) ListMachines(ctx context.Context) ([]domain.Machine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+machineColumns+` FROM machines
		ORDER BY group_name, group_member_id, uuid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query machines: %w", err)
	}
	defer rows.Close()

	machines := make([]domain.Machine, 0)
	for rows.Next() {
		var row machineRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		machines = append(machines, *row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machines: %w", err)
	}
	return machines, nil
}

// GetMachine retrieves a single machine by uuid
func (r *Repository) GetMachine(ctx context.Context, uuid string) (*domain.Machine, error) {
	var row machineRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+machineColumns+` FROM machines WHERE uuid = ?
	`, uuid).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("machine %s: %w", uuid, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query machine: %w", err)
	}
	return row.toDomain(), nil
}

const machineUpsert = `
	INSERT INTO machines (` + machineColumns + `, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(uuid) DO UPDATE SET
		group_name = excluded.group_name,
		group_member_id = excluded.group_member_id,
		domain = excluded.domain,
		port = excluded.port,
		state = excluded.state,
		updated_at = CURRENT_TIMESTAMP
`

// UpsertMachine inserts or updates a machine
func (r *Repository) UpsertMachine(ctx context.Context, machine *domain.Machine) error {
	if _, err := r.db.ExecContext(ctx, machineUpsert, machineInsertArgs(machine)...); err != nil {
		return fmt.Errorf("failed to upsert machine: %w", err)
	}
	return nil
}

// DeleteMachine removes a machine from the inventory
func (r *Repository) DeleteMachine(ctx context.Context, uuid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM machines WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete machine: %w", err)
	}
	return expectAffected(result, "machine", uuid)
}

// ReplaceMachines replaces the whole inventory
func (r *Repository) ReplaceMachines(ctx context.Context, machines []domain.Machine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM machines`); err != nil {
		return fmt.Errorf("failed to clear machines: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, machineUpsert)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range machines {
		if _, err := stmt.ExecContext(ctx, machineInsertArgs(&machines[i])...); err != nil {
			return fmt.Errorf("failed to insert machine %s: %w", machines[i].UUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func expectAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
