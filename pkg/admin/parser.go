package admin

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse tokenizes and validates one admin command. Keywords are
// case-insensitive; arguments are taken verbatim. A trailing
// semicolon is tolerated since most SQL clients append one.
func Parse(query string) (Command, error) {
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")

	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrUnrecognizedCommand)
	}

	keyword := strings.ToUpper(tokens[0])
	args := tokens[1:]

	switch keyword {
	case "BAN":
		return parseBan(args)
	case "UNBAN":
		return parseUnban(args)
	case "SHOW":
		return parseShow(args)
	case "RELOAD":
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: RELOAD takes no arguments", ErrMalformedArguments)
		}
		return ReloadCommand{}, nil
	case "SET":
		return SetCommand{Raw: query}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedCommand, keyword)
	}
}

// parseBan handles BAN <host> [<port>] <duration_seconds>
func parseBan(args []string) (Command, error) {
	var host, portToken, durationToken string

	switch len(args) {
	case 2:
		host, durationToken = args[0], args[1]
	case 3:
		host, portToken, durationToken = args[0], args[1], args[2]
	default:
		return nil, fmt.Errorf("%w: usage: BAN <host> [<port>] <duration_seconds>", ErrMalformedArguments)
	}

	port := 0
	if portToken != "" {
		p, err := parsePort(portToken)
		if err != nil {
			return nil, err
		}
		port = p
	}

	seconds, err := strconv.ParseInt(durationToken, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: duration %q is not an integer", ErrMalformedArguments, durationToken)
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDuration, seconds)
	}

	return BanCommand{
		Host:     host,
		Port:     port,
		Duration: time.Duration(seconds) * time.Second,
	}, nil
}

// parseUnban handles UNBAN <host> [<port>]
func parseUnban(args []string) (Command, error) {
	switch len(args) {
	case 1:
		return UnbanCommand{Host: args[0]}, nil
	case 2:
		port, err := parsePort(args[1])
		if err != nil {
			return nil, err
		}
		return UnbanCommand{Host: args[0], Port: port}, nil
	default:
		return nil, fmt.Errorf("%w: usage: UNBAN <host> [<port>]", ErrMalformedArguments)
	}
}

// parseShow handles the SHOW family
func parseShow(args []string) (Command, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: usage: SHOW <BANS|USERS|DATABASES|STATS|CONFIG>", ErrMalformedArguments)
	}

	switch strings.ToUpper(args[0]) {
	case "BANS":
		return ShowBansCommand{}, nil
	case "USERS":
		return ShowUsersCommand{}, nil
	case "DATABASES":
		return ShowDatabasesCommand{}, nil
	case "STATS":
		return ShowStatsCommand{}, nil
	case "CONFIG":
		return ShowConfigCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: SHOW %s", ErrUnrecognizedCommand, strings.ToUpper(args[0]))
	}
}

func parsePort(token string) (int, error) {
	port, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: port %q is not an integer", ErrMalformedArguments, token)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range", ErrMalformedArguments, port)
	}
	return port, nil
}
