package admin

import (
	"errors"
	"time"
)

// Parse failures. Each maps to a distinct wire error; none of them
// ever mutates registry state.
var (
	// ErrUnrecognizedCommand: the leading keyword is not part of the
	// admin grammar
	ErrUnrecognizedCommand = errors.New("unrecognized admin command")

	// ErrMalformedArguments: wrong arity or a non-numeric field
	ErrMalformedArguments = errors.New("malformed admin command arguments")

	// ErrInvalidDuration: the duration parsed but is zero or negative
	ErrInvalidDuration = errors.New("ban duration must be a positive number of seconds")
)

// Command is a parsed admin command. Concrete types below carry the
// validated arguments.
type Command interface {
	// Name returns the keyword form used in logs and metrics labels
	Name() string
}

// BanCommand excludes servers matching Host (and Port, if nonzero)
// from routing for Duration
type BanCommand struct {
	Host     string
	Port     int
	Duration time.Duration
}

func (BanCommand) Name() string { return "BAN" }

// UnbanCommand lifts bans for servers matching Host (and Port, if nonzero)
type UnbanCommand struct {
	Host string
	Port int
}

func (UnbanCommand) Name() string { return "UNBAN" }

// ShowBansCommand lists currently active bans in the pool context
type ShowBansCommand struct{}

func (ShowBansCommand) Name() string { return "SHOW BANS" }

// ShowUsersCommand lists configured users in the pool context
type ShowUsersCommand struct{}

func (ShowUsersCommand) Name() string { return "SHOW USERS" }

// ShowDatabasesCommand lists every configured server across shards
type ShowDatabasesCommand struct{}

func (ShowDatabasesCommand) Name() string { return "SHOW DATABASES" }

// ShowStatsCommand reports per-pool traffic counters
type ShowStatsCommand struct{}

func (ShowStatsCommand) Name() string { return "SHOW STATS" }

// ShowConfigCommand reports the flattened general configuration
type ShowConfigCommand struct{}

func (ShowConfigCommand) Name() string { return "SHOW CONFIG" }

// ReloadCommand re-reads the config file and swaps the active snapshot
type ReloadCommand struct{}

func (ReloadCommand) Name() string { return "RELOAD" }

// SetCommand is accepted and ignored. ORMs commonly issue SET on
// session startup; answering with an error would break them.
type SetCommand struct {
	Raw string
}

func (SetCommand) Name() string { return "SET" }

// ColumnType is the wire type of a result column
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnInt4
)

// Column describes one result-set column
type Column struct {
	Name string
	Type ColumnType
}

// ResultSet is the tabular answer to an admin command. Tag is the
// command-completion tag reported to the client (e.g. "SHOW", "BAN 2").
type ResultSet struct {
	Columns []Column
	Rows    [][]string
	Tag     string
}

// AddRow appends one row of column values
func (rs *ResultSet) AddRow(values ...string) {
	rs.Rows = append(rs.Rows, values)
}
