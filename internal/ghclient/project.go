package ghclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/model"
)

type addItemData struct {
	AddProjectV2ItemByID struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	} `json:"addProjectV2ItemById"`
}

type updateFieldData struct {
	UpdateProjectV2ItemFieldValue struct {
		ProjectV2Item struct {
			ID string `json:"id"`
		} `json:"projectV2Item"`
	} `json:"updateProjectV2ItemFieldValue"`
}

type projectItemsData struct {
	Node *struct {
		Items *struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				ID      string `json:"id"`
				Content *struct {
					ID     string `json:"id"`
					Number int    `json:"number"`
				} `json:"content"`
			} `json:"nodes"`
		} `json:"items"`
	} `json:"node"`
}

// ProjectItems lists every issue and pull request already on the project.
// Draft issues and redacted items have no content id and are skipped.
func (c *Client) ProjectItems(ctx context.Context, projectID string) ([]model.BoardItem, error) {
	var items []model.BoardItem

	cursor := ""
	for page := 1; ; page++ {
		data, err := c.executeGraphQL(ctx, BuildProjectItemsRequest(projectID, cursor))
		if err != nil {
			return nil, fmt.Errorf("failed to list project items: %w", err)
		}

		var parsed projectItemsData
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse project items: %w", err)
		}
		if parsed.Node == nil || parsed.Node.Items == nil {
			return nil, fmt.Errorf("project %s not found or not a ProjectV2", projectID)
		}

		for _, n := range parsed.Node.Items.Nodes {
			if n.Content == nil || n.Content.ID == "" {
				continue
			}
			items = append(items, model.BoardItem{
				ItemID:      n.ID,
				IssueNumber: n.Content.Number,
				ContentID:   n.Content.ID,
				Existing:    true,
			})
		}

		info := parsed.Node.Items.PageInfo
		log.Trace("fetched project items page", "page", page, "items", len(parsed.Node.Items.Nodes))
		if !info.HasNextPage || info.EndCursor == "" {
			break
		}
		cursor = info.EndCursor
	}

	return items, nil
}

// AddItem adds the issue or pull request contentID to the project and
// returns the new item id.
func (c *Client) AddItem(ctx context.Context, projectID, contentID string) (string, error) {
	data, err := c.executeGraphQL(ctx, BuildAddItemRequest(projectID, contentID))
	if err != nil {
		return "", fmt.Errorf("failed to add item to project: %w", err)
	}

	var parsed addItemData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse add item response: %w", err)
	}

	id := parsed.AddProjectV2ItemByID.Item.ID
	if id == "" {
		return "", errors.New("add item response did not include an item id")
	}
	return id, nil
}

// UpdateField writes one value to one field of a project item.
func (c *Client) UpdateField(ctx context.Context, u model.FieldUpdate) error {
	req, err := BuildUpdateFieldRequest(u)
	if err != nil {
		return err
	}

	data, err := c.executeGraphQL(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to update field %s: %w", u.FieldID, err)
	}

	var parsed updateFieldData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse update field response: %w", err)
	}
	if parsed.UpdateProjectV2ItemFieldValue.ProjectV2Item.ID == "" {
		return fmt.Errorf("update field response did not echo item %s", u.ItemID)
	}
	return nil
}
