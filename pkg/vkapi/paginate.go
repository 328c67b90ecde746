package vkapi

import "fmt"

// CallAll fetches every page of a countable method at a fixed page size and
// returns the concatenated result in the same {"count": N, "items": [...]}
// shape the API uses for a single page. The caller picks the page size; the
// "response size is too big" error surfaces unchanged so the fetch layer can
// shrink the page and start over.
func (c *Client) CallAll(method string, pageSize int, params Params) (map[string]interface{}, error) {
	if pageSize < 1 {
		return nil, fmt.Errorf("vk api: page size must be at least 1, got %d", pageSize)
	}

	var items []interface{}
	total := 0
	offset := 0

	for {
		p := params.clone()
		p["count"] = pageSize
		p["offset"] = offset

		payload, err := c.Call(method, p)
		if err != nil {
			return nil, err
		}
		page, ok := payload.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("vk api: method %s is not paginated", method)
		}

		total = intField(page, "count")
		pageItems, _ := page["items"].([]interface{})
		items = append(items, pageItems...)

		offset += len(pageItems)
		if len(pageItems) == 0 || offset >= total {
			break
		}
	}

	return map[string]interface{}{
		"count": total,
		"items": items,
	}, nil
}

// intField reads a numeric JSON field as int, tolerating absence
func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
