package correlate

import (
	"regexp"
	"strconv"

	"github.com/okian/saberlens/internal/domain/model"
)

var (
	siteURLPattern = regexp.MustCompile(`/u/(\d+)(?:\?page=(\d+)&sort=(.*))?$`)
	apiURLPattern  = regexp.MustCompile(`/api/player/(\d+)/scores(?:\?page=(\d+)&sort=(.*))?$`)
)

// ParseSiteURL extracts the context from a profile page URL such as
// https://scoresaber.com/u/76561198?page=2&sort=recent.
func ParseSiteURL(raw string) (model.QueryContext, bool) {
	return parse(siteURLPattern, raw)
}

// ParseAPIURL extracts the context from a player scores API URL such as
// https://scoresaber.com/api/player/76561198/scores?page=2&sort=recent.
func ParseAPIURL(raw string) (model.QueryContext, bool) {
	return parse(apiURLPattern, raw)
}

func parse(re *regexp.Regexp, raw string) (model.QueryContext, bool) {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return model.QueryContext{}, false
	}

	page := 1
	if m[2] != "" {
		if p, err := strconv.Atoi(m[2]); err == nil && p > 0 {
			page = p
		}
	}

	return model.QueryContext{
		SubjectID: m[1],
		Page:      page,
		Sort:      model.ParseSortMode(m[3]),
	}, true
}
