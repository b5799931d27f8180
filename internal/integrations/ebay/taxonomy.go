package ebay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"crosslister/internal/domain"
)

// Category tree 0 is the US marketplace.
const categoryTreeID = "0"

// GetCategoryTree downloads the full marketplace category tree. The
// response is large (tens of MB); callers cache the flattened form.
func (c *Client) GetCategoryTree(ctx context.Context) (*CategoryTree, error) {
	var tree CategoryTree
	path := fmt.Sprintf("/commerce/taxonomy/v1/category_tree/%s", categoryTreeID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, authApp, &tree); err != nil {
		return nil, fmt.Errorf("get category tree: %w", err)
	}
	return &tree, nil
}

// GetItemAspects returns the aspect requirements for one leaf category.
// A 204 means the category defines no aspects.
func (c *Client) GetItemAspects(ctx context.Context, categoryID string) ([]domain.AspectRequirement, error) {
	path := fmt.Sprintf("/commerce/taxonomy/v1/category_tree/%s/get_item_aspects_for_category?category_id=%s",
		categoryTreeID, url.QueryEscape(categoryID))

	var resp aspectsResponse
	status, err := c.do(ctx, http.MethodGet, path, nil, authApp, &resp,
		http.StatusOK, http.StatusNoContent)
	if err != nil {
		return nil, fmt.Errorf("get aspects for %s: %w", categoryID, err)
	}
	if status == http.StatusNoContent {
		return nil, nil
	}

	out := make([]domain.AspectRequirement, 0, len(resp.Aspects))
	for _, a := range resp.Aspects {
		req := domain.AspectRequirement{
			CategoryID:  categoryID,
			Name:        a.LocalizedAspectName,
			Mode:        domain.AspectMode(a.AspectConstraint.AspectMode),
			Cardinality: domain.AspectCardinality(a.AspectConstraint.ItemToAspectCardinality),
			Required:    a.AspectConstraint.AspectRequired,
			Recommended: a.AspectConstraint.AspectUsage == "RECOMMENDED",
		}
		if req.Mode == "" {
			req.Mode = domain.AspectFreeText
		}
		if req.Cardinality == "" {
			req.Cardinality = domain.CardinalitySingle
		}
		if req.Mode == domain.AspectSelectionOnly {
			for _, v := range a.AspectValues {
				req.AllowedValues = append(req.AllowedValues, v.LocalizedValue)
			}
		}
		out = append(out, req)
	}
	return out, nil
}

// FlattenTree converts the nested tree response into a snapshot. A node
// is a leaf when it has no children.
func FlattenTree(tree *CategoryTree) map[string]domain.CategoryNode {
	nodes := make(map[string]domain.CategoryNode, 16384)
	var walk func(node CategoryTreeNode, parentID string)
	walk = func(node CategoryTreeNode, parentID string) {
		id := node.Category.CategoryID
		if id != "" {
			nodes[id] = domain.CategoryNode{
				ID:       id,
				Name:     node.Category.CategoryName,
				ParentID: parentID,
				Level:    node.CategoryTreeNodeLevel,
				Leaf:     len(node.ChildCategoryTreeNodes) == 0,
			}
		}
		for _, child := range node.ChildCategoryTreeNodes {
			walk(child, id)
		}
	}
	walk(tree.RootCategoryNode, "")
	return nodes
}
