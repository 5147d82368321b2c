package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"synapse-mcp/internal/synapse"
)

// registerResources exposes entities, their annotations, and their
// children under synapse:// URIs, plus the datasets catalogue as
// Croissant metadata.
func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(
		"synapse://entities/{id}",
		"Synapse entity",
		mcp.WithTemplateDescription("A Synapse entity by its ID"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readEntityResource)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(
		"synapse://entities/{id}/annotations",
		"Synapse entity annotations",
		mcp.WithTemplateDescription("The annotations attached to a Synapse entity"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readAnnotationsResource)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(
		"synapse://entities/{id}/children",
		"Synapse container children",
		mcp.WithTemplateDescription("The children of a Synapse project or folder"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readChildrenResource)

	s.mcpServer.AddResource(mcp.NewResource(
		"synapse://datasets/croissant",
		"Sage Bionetworks datasets catalogue",
		mcp.WithResourceDescription("The public datasets catalogue as Croissant (schema.org JSON-LD) metadata"),
		mcp.WithMIMEType("application/ld+json"),
	), s.readCroissantResource)
}

func (s *Server) readEntityResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entityID, err := entityIDFromURI(request.Params.URI, "")
	if err != nil {
		return nil, err
	}

	entity, err := s.synapse.GetEntity(s.resourceContext(ctx), entityID)
	if err != nil {
		return nil, err
	}
	return jsonResourceContents(request.Params.URI, entity)
}

func (s *Server) readAnnotationsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entityID, err := entityIDFromURI(request.Params.URI, "/annotations")
	if err != nil {
		return nil, err
	}

	annotations, err := s.synapse.GetAnnotations(s.resourceContext(ctx), entityID)
	if err != nil {
		return nil, err
	}
	return jsonResourceContents(request.Params.URI, annotations)
}

func (s *Server) readChildrenResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entityID, err := entityIDFromURI(request.Params.URI, "/children")
	if err != nil {
		return nil, err
	}

	page, err := s.synapse.GetChildren(s.resourceContext(ctx), entityID, "")
	if err != nil {
		return nil, err
	}
	return jsonResourceContents(request.Params.URI, page)
}

func (s *Server) readCroissantResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	table, err := s.synapse.QueryTable(s.resourceContext(ctx), synapse.DatasetsTableID, "")
	if err != nil {
		return nil, err
	}
	return jsonResourceContents(request.Params.URI, synapse.ConvertToCroissant(table))
}

// resourceContext attaches the session's access token. Resource reads do
// not pass through the tool middleware, so the token is resolved here;
// unauthenticated sessions surface the error from the Synapse client.
func (s *Server) resourceContext(ctx context.Context) context.Context {
	token, err := s.provider.AccessToken(ctx, sessionFromContext(ctx))
	if err != nil {
		return ctx
	}
	return synapse.ContextWithToken(ctx, token)
}

// entityIDFromURI extracts the entity ID from a synapse://entities/ URI,
// stripping the given trailing path segment.
func entityIDFromURI(uri, suffix string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "synapse://entities/")
	if !ok {
		return "", fmt.Errorf("unsupported resource URI: %s", uri)
	}
	entityID := strings.TrimSuffix(rest, suffix)
	if !synapse.ValidateID(entityID) {
		return "", fmt.Errorf("invalid Synapse ID in resource URI: %s", entityID)
	}
	return entityID, nil
}

func jsonResourceContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(payload),
		},
	}, nil
}
