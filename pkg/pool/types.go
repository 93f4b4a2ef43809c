package pool

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-pgpool/pkg/config"
)

// Errors for pool view construction and lookups
var (
	ErrUnknownPool  = errors.New("unknown pool")
	ErrUnknownShard = errors.New("unknown shard")
)

// ServerIdentity identifies one physical backend server.
// Compared by value; immutable once constructed.
type ServerIdentity struct {
	Host string
	Port uint16
}

// String returns the canonical host:port form
func (s ServerIdentity) String() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ResolvedServer is a server located within the shard topology of a pool
type ResolvedServer struct {
	Server   ServerIdentity
	Shard    int
	Role     config.Role
	Database string
}

// UserRecord is a configured user as reported by SHOW USERS.
// PoolMode is the effective mode: the user's override when set,
// otherwise the pool's mode.
type UserRecord struct {
	Name     string
	PoolMode config.PoolMode
}
