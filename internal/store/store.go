// Package store persists game records. Every backend implements the same
// optimistic contract: UpdateGame succeeds only when the caller's Revision matches
// the stored one, and advances it on success.
package store

import (
    "errors"
    "fmt"
    "net/url"
    "strconv"
    "strings"

    "github.com/redis/go-redis/v9"
)

var errNilRecord = errors.New("store: nil game record")

// ParseRedisURL converts redis://[:password@]host:port[/db] into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(strings.TrimSpace(raw))
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
    if u.Host == "" { return nil, fmt.Errorf("redis url missing host") }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" {
        n, err := strconv.Atoi(p)
        if err != nil { return nil, fmt.Errorf("invalid redis db %q", p) }
        db = n
    }
    pass, _ := u.User.Password()
    return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
