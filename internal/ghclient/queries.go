package ghclient

import (
	"embed"
	"fmt"

	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/model"
)

//go:embed queries/*.graphql
var queryFiles embed.FS

var (
	addItemQuery      = mustQuery("add_item.graphql")
	updateFieldQuery  = mustQuery("update_field.graphql")
	projectItemsQuery = mustQuery("project_items.graphql")
)

func mustQuery(name string) string {
	data, err := queryFiles.ReadFile("queries/" + name)
	if err != nil {
		panic(fmt.Sprintf("failed to load %s: %v", name, err))
	}
	return string(data)
}

// Request is a GraphQL document plus its variables. Builders return a new
// Request per call; values always travel as variables, never inlined.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// BuildAddItemRequest builds the mutation that adds contentID to a project.
func BuildAddItemRequest(projectID, contentID string) Request {
	return Request{
		Query: addItemQuery,
		Variables: map[string]any{
			"projectId": projectID,
			"contentId": contentID,
		},
	}
}

// BuildUpdateFieldRequest builds the mutation that writes one field value.
func BuildUpdateFieldRequest(u model.FieldUpdate) (Request, error) {
	var value map[string]any
	switch u.Value.Kind {
	case model.FieldKindNumber:
		value = map[string]any{"number": u.Value.Number}
	case model.FieldKindDate:
		value = map[string]any{"date": u.Value.Date}
	default:
		return Request{}, fmt.Errorf("unsupported field kind %q", u.Value.Kind)
	}

	return Request{
		Query: updateFieldQuery,
		Variables: map[string]any{
			"projectId": u.ProjectID,
			"itemId":    u.ItemID,
			"fieldId":   u.FieldID,
			"value":     value,
		},
	}, nil
}

// BuildProjectItemsRequest builds one page of the project items query.
// An empty cursor requests the first page.
func BuildProjectItemsRequest(projectID, cursor string) Request {
	vars := map[string]any{
		"projectId": projectID,
		"first":     constants.ProjectItemsPageSize,
	}
	if cursor != "" {
		vars["cursor"] = cursor
	}
	return Request{Query: projectItemsQuery, Variables: vars}
}
