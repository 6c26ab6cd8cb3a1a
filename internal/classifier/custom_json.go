package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"chainview/internal/core"
)

// Application tags with dedicated descriptions.
const (
	tagFollow    = "follow"
	tagReblog    = "reblog"
	tagCommunity = "community"
)

type followBody struct {
	Follower  text  `json:"follower"`
	Following text  `json:"following"`
	What      names `json:"what"`
}

type reblogBody struct {
	Account  text `json:"account"`
	Author   text `json:"author"`
	Permlink text `json:"permlink"`
}

type communityBody struct {
	Community text `json:"community"`
	Account   text `json:"account"`
	Permlink  text `json:"permlink"`
}

// splitAction parses a custom_json body of the form [action, payload]. A bare
// object is accepted as a payload without an action. ok is false when the body
// is not JSON in either shape.
func splitAction(b body) (action string, payload json.RawMessage, ok bool) {
	raw := json.RawMessage(strings.TrimSpace(string(b)))
	if len(raw) == 0 {
		return "", nil, false
	}
	switch raw[0] {
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) == 0 {
			return "", nil, false
		}
		var name text
		_ = json.Unmarshal(parts[0], &name)
		if len(parts) > 1 {
			payload = parts[1]
		}
		return strings.TrimSpace(string(name)), payload, true
	case '{':
		if !json.Valid(raw) {
			return "", nil, false
		}
		return "", raw, true
	default:
		return "", nil, false
	}
}

// classifyCustomJSON fills item for a custom_json operation and reports whether
// the operation is representable at all. One with neither a tag nor a body is not.
func classifyCustomJSON(item *core.ActivityItem, op customJSONOp) bool {
	item.Kind = core.KindCustomJSON
	item.Direction = core.DirectionOut

	tag := strings.TrimSpace(string(op.ID))
	if tag == "" && strings.TrimSpace(string(op.JSON)) == "" {
		item.Description = "custom operation"
		return false
	}

	action, payload, ok := splitAction(op.JSON)
	if ok {
		switch {
		case (tag == tagFollow || tag == tagReblog) && action == "reblog":
			var r reblogBody
			decodeInto(payload, &r)
			item.ExtractedFields = core.ExtractedFields{
				Author:   string(r.Author),
				Permlink: string(r.Permlink),
			}
			item.Description = fmt.Sprintf("%s reblogged %s/%s", r.Account, r.Author, r.Permlink)
			return true
		case tag == tagFollow && (action == "follow" || action == ""):
			var f followBody
			decodeInto(payload, &f)
			if f.Follower != "" || f.Following != "" {
				item.Description = fmt.Sprintf("%s %s %s", f.Follower, followVerb(f.What), f.Following)
				return true
			}
		case tag == tagCommunity:
			var c communityBody
			decodeInto(payload, &c)
			if c.Community != "" {
				item.ExtractedFields = core.ExtractedFields{
					Author:    string(c.Account),
					Permlink:  string(c.Permlink),
					Community: string(c.Community),
				}
				if action == "" {
					action = "update"
				}
				item.Description = fmt.Sprintf("%s in %s", action, c.Community)
				return true
			}
		}
	}

	if tag == "" {
		item.Description = "custom operation"
	} else {
		item.Description = "custom operation: " + tag
	}
	return true
}

// followVerb maps the "what" list of a follow body to a past-tense verb.
// An empty list is an unfollow and "ignore" is a mute.
func followVerb(what names) string {
	if len(what) == 0 {
		return "unfollowed"
	}
	for _, w := range what {
		switch strings.TrimSpace(w) {
		case "ignore":
			return "muted"
		case "blog":
			return "followed"
		}
	}
	if strings.TrimSpace(strings.Join(what, "")) == "" {
		return "unfollowed"
	}
	return "followed"
}
