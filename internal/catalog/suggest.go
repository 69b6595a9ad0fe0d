package catalog

import (
	"encoding/json"
	"strings"
)

type suggestResponse struct {
	Code json.Number `json:"code"`
	List []struct {
		Name string `json:"name"`
	} `json:"list"`
}

// ParseSuggestions 解析联想接口的 JSON。code 不为 1 或无法解析时返回空列表。
func ParseSuggestions(body []byte) []string {
	var r suggestResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return []string{}
	}
	if r.Code.String() != "1" {
		return []string{}
	}
	out := make([]string, 0, len(r.List))
	for _, it := range r.List {
		if name := strings.TrimSpace(it.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
