package ltiaas

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// JoinPath appends sub to the path of base, keeping scheme, user info, host,
// port and query. sub is used as given and must already be escaped.
func JoinPath(base, sub string) (string, error) {
	u, err := parseBase(base)
	if err != nil {
		return "", err
	}
	return build(u, strings.TrimRight(u.EscapedPath(), "/")+"/"+strings.TrimLeft(sub, "/"), u.RawQuery), nil
}

// LaunchURL is the remote launch entry for a tool: {base}/lti/launch?id=<toolID>,
// merged with any query already on base.
func LaunchURL(base string, toolID int64) (string, error) {
	u, err := parseBase(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("id", strconv.FormatInt(toolID, 10))
	return build(u, strings.TrimRight(u.EscapedPath(), "/")+"/lti/launch", q.Encode()), nil
}

func parseBase(base string) (*url.URL, error) {
	if strings.TrimSpace(base) == "" {
		return nil, ErrNotConfigured
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse remote service url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote service url %q: missing scheme or host", base)
	}
	return u, nil
}

func build(u *url.URL, path, rawQuery string) string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	b.WriteString(path)
	if rawQuery != "" {
		b.WriteByte('?')
		b.WriteString(rawQuery)
	}
	return b.String()
}
