package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	modsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"netpanel/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullToInt converts sql.NullInt64 to int, 0 when NULL
func nullToInt(ni sql.NullInt64) int {
	if ni.Valid {
		return int(ni.Int64)
	}
	return 0
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// intToNull stores 0 as NULL
func intToNull(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to a nullable JSON string. nil pointers are
// stored as NULL.
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	if vp, ok := v.(*domain.Viewport); ok && vp == nil {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Error Helpers
// ============================================================================

// isUniqueViolation reports whether err is a UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var se *modsqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the snapshots table:
// 1. Add field to snapshotRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update snapshotColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.Snapshot
// 5. Update snapshotInsertArgs() if column should be writable
// 6. Add migration in sqlite.go migrate()
// 7. Update relevant tests
//
// CRITICAL: Column order must match between:
// - snapshotColumns constant
// - scanArgs() return slice
// - All SELECT queries using snapshotColumns
//
// Same pattern applies to machines.

// ============================================================================
// Snapshot Row Scanner
// ============================================================================

// snapshotRow holds all columns from a snapshot query for scanning
type snapshotRow struct {
	UUID         string
	Name         string
	Deletable    bool
	NodesJSON    sql.NullString
	IntnetsJSON  sql.NullString
	ViewportJSON sql.NullString
	CreatedAt    time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match snapshotColumns order exactly:
// uuid, name, deletable, nodes, intnets, viewport, created_at
func (r *snapshotRow) scanArgs() []interface{} {
	return []interface{}{
		&r.UUID,         // 1
		&r.Name,         // 2
		&r.Deletable,    // 3
		&r.NodesJSON,    // 4
		&r.IntnetsJSON,  // 5
		&r.ViewportJSON, // 6
		&r.CreatedAt,    // 7
	}
}

// toDomain converts the scanned row to a domain.Snapshot
func (r *snapshotRow) toDomain() (*domain.Snapshot, error) {
	s := &domain.Snapshot{
		UUID:      r.UUID,
		Name:      r.Name,
		Deletable: r.Deletable,
		Nodes:     []domain.Node{},
		Intnets:   make(domain.IntnetConfig),
		CreatedAt: r.CreatedAt,
	}

	if err := unmarshalJSONField(r.NodesJSON, &s.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := unmarshalJSONField(r.IntnetsJSON, &s.Intnets); err != nil {
		return nil, fmt.Errorf("unmarshal intnets: %w", err)
	}
	if r.ViewportJSON.Valid && r.ViewportJSON.String != "" {
		s.Viewport = &domain.Viewport{}
		if err := json.Unmarshal([]byte(r.ViewportJSON.String), s.Viewport); err != nil {
			return nil, fmt.Errorf("unmarshal viewport: %w", err)
		}
	}

	return s, nil
}

// snapshotColumns returns the SELECT column list for snapshot queries
const snapshotColumns = `uuid, name, deletable, nodes, intnets, viewport, created_at`

// snapshotInsertArgs prepares arguments for snapshot INSERT
// Returns: uuid, name, deletable, nodes, intnets, viewport, created_at
func snapshotInsertArgs(s *domain.Snapshot) ([]interface{}, error) {
	nodes := s.Nodes
	if nodes == nil {
		nodes = []domain.Node{}
	}
	nodesJSON, err := marshalToNull(nodes)
	if err != nil {
		return nil, fmt.Errorf("marshal nodes: %w", err)
	}

	intnets := s.Intnets
	if intnets == nil {
		intnets = make(domain.IntnetConfig)
	}
	intnetsJSON, err := marshalToNull(intnets)
	if err != nil {
		return nil, fmt.Errorf("marshal intnets: %w", err)
	}

	viewportJSON, err := marshalToNull(s.Viewport)
	if err != nil {
		return nil, fmt.Errorf("marshal viewport: %w", err)
	}

	return []interface{}{
		s.UUID,
		s.Name,
		s.Deletable,
		nodesJSON,
		intnetsJSON,
		viewportJSON,
		s.CreatedAt,
	}, nil
}

// ============================================================================
// Machine Row Scanner
// ============================================================================

// machineRow holds all columns from a machine query for scanning
type machineRow struct {
	UUID          string
	Group         sql.NullString
	GroupMemberID sql.NullInt64
	Domain        sql.NullString
	Port          sql.NullInt64
	State         sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match machineColumns order exactly:
// uuid, group_name, group_member_id, domain, port, state
func (r *machineRow) scanArgs() []interface{} {
	return []interface{}{
		&r.UUID,          // 1
		&r.Group,         // 2
		&r.GroupMemberID, // 3
		&r.Domain,        // 4
		&r.Port,          // 5
		&r.State,         // 6
	}
}

// toDomain converts the scanned row to a domain.Machine
func (r *machineRow) toDomain() *domain.Machine {
	return &domain.Machine{
		UUID:          r.UUID,
		Group:         nullToString(r.Group),
		GroupMemberID: nullToInt(r.GroupMemberID),
		Domain:        nullToString(r.Domain),
		Port:          nullToInt(r.Port),
		State:         domain.MachineState(nullToString(r.State)),
	}
}

// machineColumns returns the SELECT column list for machine queries
const machineColumns = `uuid, group_name, group_member_id, domain, port, state`

// machineInsertArgs prepares arguments for machine UPSERT
// Returns: uuid, group_name, group_member_id, domain, port, state
func machineInsertArgs(m *domain.Machine) []interface{} {
	return []interface{}{
		m.UUID,
		stringToNull(m.Group),
		intToNull(m.GroupMemberID),
		stringToNull(m.Domain),
		intToNull(m.Port),
		stringToNull(string(m.State)),
	}
}
