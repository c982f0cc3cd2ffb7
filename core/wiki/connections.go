package wiki

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"rabbithole/model"
)

// Musician names arrive from the UI with an optional trailing instrument
// annotation, e.g. "Jess (fiddle)".
var instrumentSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// NormalizeMusician strips a trailing parenthetical instrument annotation
// before any connection lookup.
func NormalizeMusician(name string) string {
	return strings.TrimSpace(instrumentSuffix.ReplaceAllString(name, ""))
}

// GetMusicianConnections returns the catalog connections for a musician:
// other songs they appear on, matched against the wiki's connection index.
func (c *Client) GetMusicianConnections(ctx context.Context, name string) ([]model.MusicianConnection, error) {
	index, err := c.getConnectionIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取连接索引失败: %w", err)
	}
	return MatchConnections(index, NormalizeMusician(name)), nil
}

// getConnectionIndex 获取 musician -> connections 全量索引
func (c *Client) getConnectionIndex(ctx context.Context) (map[string][]model.MusicianConnection, error) {
	endpoint := fmt.Sprintf("%s/api/connections", c.baseURL)

	var index map[string][]model.MusicianConnection
	if err := c.getJSON(ctx, endpoint, &index); err != nil {
		return nil, err
	}
	return index, nil
}

// MatchConnections resolves a musician name against the connection index:
// case-sensitive exact match first, then a fallback partial match on the
// first word of the name. Multiple prefix candidates resolve to the
// lexicographically first key so repeated lookups agree.
func MatchConnections(index map[string][]model.MusicianConnection, name string) []model.MusicianConnection {
	if conns, ok := index[name]; ok {
		return conns
	}

	fields := strings.Fields(name)
	if len(fields) == 0 {
		return nil
	}
	firstWord := fields[0]

	var candidates []string
	for key := range index {
		if strings.HasPrefix(key, firstWord) {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Strings(candidates)
	return index[candidates[0]]
}
