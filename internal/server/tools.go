package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"synapse-mcp/internal/synapse"
)

// registerTools adds the read-only Synapse tool surface.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Get a Synapse entity (project, folder, file, table, dataset, or link) by its ID."),
		mcp.WithString("entity_id", mcp.Required(),
			mcp.Description("Synapse entity ID, e.g. syn123456")),
	), s.handleGetEntity)

	s.mcpServer.AddTool(mcp.NewTool("get_entity_annotations",
		mcp.WithDescription("Get the annotations (key-value metadata) attached to a Synapse entity."),
		mcp.WithString("entity_id", mcp.Required(),
			mcp.Description("Synapse entity ID, e.g. syn123456")),
	), s.handleGetAnnotations)

	s.mcpServer.AddTool(mcp.NewTool("get_entity_children",
		mcp.WithDescription("List the children of a Synapse container (project or folder)."),
		mcp.WithString("entity_id", mcp.Required(),
			mcp.Description("Synapse ID of the project or folder")),
		mcp.WithString("page_token",
			mcp.Description("Continuation token from a previous page")),
	), s.handleGetChildren)

	s.mcpServer.AddTool(mcp.NewTool("get_entity_provenance",
		mcp.WithDescription("Get the provenance (activity) record describing how an entity was generated."),
		mcp.WithString("entity_id", mcp.Required(),
			mcp.Description("Synapse entity ID, e.g. syn123456")),
	), s.handleGetProvenance)

	s.mcpServer.AddTool(mcp.NewTool("search_synapse",
		mcp.WithDescription("Full-text search across Synapse entities."),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Search terms")),
		mcp.WithString("entity_type",
			mcp.Description("Restrict results to one entity type: project, folder, file, table, dataset, or link")),
		mcp.WithString("parent_id",
			mcp.Description("Restrict results to children of this container")),
	), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("query_entities",
		mcp.WithDescription("Query entities by structured criteria (parent, name, type, annotations)."),
		mcp.WithString("entity_id",
			mcp.Description("Match a specific entity ID")),
		mcp.WithString("parent_id",
			mcp.Description("Match entities under this container")),
		mcp.WithString("name",
			mcp.Description("Match entities with this exact name")),
		mcp.WithString("entity_type",
			mcp.Description("Match one entity type: project, folder, file, table, dataset, or link")),
		mcp.WithObject("annotations",
			mcp.Description("Annotation key-value pairs to match")),
	), s.handleQueryEntities)

	s.mcpServer.AddTool(mcp.NewTool("query_table",
		mcp.WithDescription("Run a SQL-like query against a Synapse table."),
		mcp.WithString("table_id", mcp.Required(),
			mcp.Description("Synapse ID of the table, e.g. syn123456")),
		mcp.WithString("query",
			mcp.Description("Table SQL. A bare WHERE clause is completed to SELECT * FROM the table; empty selects everything.")),
	), s.handleQueryTable)

	s.mcpServer.AddTool(mcp.NewTool("get_datasets_croissant",
		mcp.WithDescription("Get the Sage Bionetworks public datasets catalogue as Croissant (schema.org JSON-LD) metadata."),
	), s.handleDatasetsCroissant)

	s.mcpServer.AddTool(mcp.NewTool("get_user_profile",
		mcp.WithDescription("Get the Synapse user profile of the authenticated caller."),
	), s.handleUserProfile)
}

func (s *Server) handleGetEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID, errResult := requireEntityID(request, "entity_id")
	if errResult != nil {
		return errResult, nil
	}

	entity, err := s.synapse.GetEntity(ctx, entityID)
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(entity)
}

func (s *Server) handleGetAnnotations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID, errResult := requireEntityID(request, "entity_id")
	if errResult != nil {
		return errResult, nil
	}

	annotations, err := s.synapse.GetAnnotations(ctx, entityID)
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(annotations)
}

func (s *Server) handleGetChildren(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID, errResult := requireEntityID(request, "entity_id")
	if errResult != nil {
		return errResult, nil
	}

	// Only containers have children; resolve the entity first so the
	// caller gets a clear error instead of an empty page.
	entity, err := s.synapse.GetEntity(ctx, entityID)
	if err != nil {
		return synapseError(err), nil
	}
	if !entity.IsContainer() {
		return mcp.NewToolResultError(fmt.Sprintf(
			"entity %s is a %s, not a project or folder", entityID, entity.Type())), nil
	}

	page, err := s.synapse.GetChildren(ctx, entityID, request.GetString("page_token", ""))
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(page)
}

func (s *Server) handleGetProvenance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID, errResult := requireEntityID(request, "entity_id")
	if errResult != nil {
		return errResult, nil
	}

	activity, err := s.synapse.GetProvenance(ctx, entityID)
	if err != nil {
		if errors.Is(err, synapse.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("entity %s has no provenance record", entityID)), nil
		}
		return synapseError(err), nil
	}
	return jsonResult(activity)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	result, err := s.synapse.Search(ctx, query,
		request.GetString("entity_type", ""),
		request.GetString("parent_id", ""))
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleQueryEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := synapse.QueryParams{
		ID:         request.GetString("entity_id", ""),
		ParentID:   request.GetString("parent_id", ""),
		Name:       request.GetString("name", ""),
		EntityType: request.GetString("entity_type", ""),
	}
	if params.ID != "" && !synapse.ValidateID(params.ID) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid Synapse ID: %s", params.ID)), nil
	}
	if params.ParentID != "" && !synapse.ValidateID(params.ParentID) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid Synapse ID: %s", params.ParentID)), nil
	}
	if raw, ok := request.GetArguments()["annotations"].(map[string]interface{}); ok {
		params.Annotations = raw
	}

	condition := synapse.BuildCondition(params)
	if condition == "" {
		return mcp.NewToolResultError("at least one query criterion is required"), nil
	}

	results, err := s.synapse.QueryEntities(ctx, condition)
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(map[string]interface{}{"results": results})
}

func (s *Server) handleQueryTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, errResult := requireEntityID(request, "table_id")
	if errResult != nil {
		return errResult, nil
	}

	result, err := s.synapse.QueryTable(ctx, tableID, request.GetString("query", ""))
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleDatasetsCroissant(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := s.synapse.QueryTable(ctx, synapse.DatasetsTableID, "")
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(synapse.ConvertToCroissant(table))
}

func (s *Server) handleUserProfile(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, err := s.synapse.GetUserProfile(ctx)
	if err != nil {
		return synapseError(err), nil
	}
	return jsonResult(profile)
}

// requireEntityID extracts and validates a Synapse ID argument. The second
// return value is a ready tool error result when the argument is missing
// or malformed.
func requireEntityID(request mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	id, err := request.RequireString(key)
	if err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("%s is required", key))
	}
	if !synapse.ValidateID(id) {
		return "", mcp.NewToolResultError(fmt.Sprintf(
			"invalid Synapse ID: %s (expected syn followed by digits)", id))
	}
	return id, nil
}

// synapseError maps client errors to tool error results.
func synapseError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, synapse.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err))
	case errors.Is(err, synapse.ErrUnauthorized):
		return mcp.NewToolResultError("Synapse rejected the credential; it may have been revoked")
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Synapse request failed: %v", err))
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
