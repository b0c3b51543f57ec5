package memory

import (
	"context"

	"github.com/samber/oops"

	"memhub/app/util/errcode"
)

// Metadata keys recognized by Save. Each backend maps the keys it supports
// onto native fields and silently ignores the rest.
const (
	MetaTitle             = "title"
	MetaImportance        = "importance"
	MetaKeywords          = "keywords"
	MetaTags              = "tags"
	MetaContext           = "context"
	MetaSource            = "source"
	MetaSourceDescription = "source_description"
)

// Backend is the contract both remote stores are adapted to. Every call
// takes the scope identifier (groupID) isolating one project's memories
// from another's; the façade injects it.
type Backend interface {
	Query(ctx context.Context, groupID, query string, limit int) ([]Memory, error)
	Save(ctx context.Context, groupID, content string, meta map[string]any) (string, error)
	SearchRelationships(ctx context.Context, groupID, query string, limit int) ([]Relationship, error)
	Explore(ctx context.Context, groupID, start string, depth int) (*KnowledgeGraph, error)
	ListRecent(ctx context.Context, groupID string, limit int) ([]Memory, error)

	Capabilities() []OperationInfo
	Schema(operation string) (OperationSchema, error)
	Examples(operation string) ([]string, error)
}

// operationSet backs the capability-discovery methods of a backend.
type operationSet []OperationInfo

func (s operationSet) capabilities() []OperationInfo {
	result := make([]OperationInfo, len(s))
	copy(result, s)

	return result
}

func (s operationSet) lookup(operation string) (OperationInfo, error) {
	for _, op := range s {
		if op.Name == operation {
			return op, nil
		}
	}

	return OperationInfo{}, oops.Code(errcode.UnknownOperation).Errorf("unknown operation: %s", operation)
}

func (s operationSet) schema(operation string) (OperationSchema, error) {
	op, err := s.lookup(operation)
	if err != nil {
		return OperationSchema{}, err
	}

	return OperationSchema{
		Description: op.Description,
		Params:      op.Params,
	}, nil
}

func (s operationSet) examples(operation string) ([]string, error) {
	op, err := s.lookup(operation)
	if err != nil {
		return nil, err
	}

	return []string{op.Example}, nil
}
