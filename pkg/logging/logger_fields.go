package logging

import (
	"fmt"
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint16(key string, value uint16) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Pooler-specific field constructors

// Pool tags a log entry with the pool name
func Pool(name string) Field {
	return Field{Key: "pool", Value: name}
}

// Shard tags a log entry with a shard index
func Shard(index int) Field {
	return Field{Key: "shard", Value: index}
}

// Server tags a log entry with a backend server address
func Server(host string, port uint16) Field {
	return Field{Key: "server", Value: fmt.Sprintf("%s:%d", host, port)}
}

// Conn tags a log entry with a client connection ID
func Conn(id string) Field {
	return Field{Key: "conn", Value: id}
}
