package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"memhub/app/client/atomicstore"
	"memhub/app/client/graphstore"
)

var fakeEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// matchesQuery mimics semantic retrieval well enough for tests: every
// query token must appear somewhere in the haystack.
func matchesQuery(query, haystack string) bool {
	haystack = strings.ToLower(haystack)

	for _, token := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(haystack, token) {
			return false
		}
	}

	return true
}

// fakeGraphServer implements graphstore.ToolCaller against in-memory state.
// Saving an episode immediately yields one extracted node, standing in for
// the store's own entity extraction.
type fakeGraphServer struct {
	mu       sync.Mutex
	nodes    []fakeGraphNode
	facts    []fakeGraphFact
	episodes []fakeGraphEpisode
}

type fakeGraphNode struct {
	graphstore.Node
	group string
}

type fakeGraphFact struct {
	graphstore.Fact
	group string
}

type fakeGraphEpisode struct {
	graphstore.Episode
	group string
}

func newFakeGraphServer() *fakeGraphServer {
	return &fakeGraphServer{}
}

func (s *fakeGraphServer) addFact(group string, fact graphstore.Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.facts = append(s.facts, fakeGraphFact{Fact: fact, group: group})
}

func (s *fakeGraphServer) CallTool(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("arguments must be a map"), nil
	}

	switch request.Params.Name {
	case "add_memory":
		return s.addMemory(args), nil
	case "search_memory_nodes":
		return s.searchNodes(args), nil
	case "search_memory_facts":
		return s.searchFacts(args), nil
	case "get_episodes":
		return s.getEpisodes(args), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown tool: %s", request.Params.Name)), nil
	}
}

func (s *fakeGraphServer) addMemory(args map[string]any) *mcp.CallToolResult {
	group, _ := args["group_id"].(string)
	body, _ := args["episode_body"].(string)
	name, _ := args["name"].(string)

	id := uuid.NewString()
	createdAt := fakeEpoch.Add(time.Duration(len(s.episodes)) * time.Minute).Format(time.RFC3339)

	s.episodes = append(s.episodes, fakeGraphEpisode{
		Episode: graphstore.Episode{
			UUID:      id,
			Name:      name,
			Content:   body,
			Source:    "test",
			CreatedAt: createdAt,
		},
		group: group,
	})

	s.nodes = append(s.nodes, fakeGraphNode{
		Node: graphstore.Node{
			UUID:      id,
			Name:      body,
			Summary:   name,
			CreatedAt: createdAt,
		},
		group: group,
	})

	return jsonResult(map[string]any{"episode_id": id})
}

func (s *fakeGraphServer) searchNodes(args map[string]any) *mcp.CallToolResult {
	query, _ := args["query"].(string)
	groups, _ := args["group_ids"].([]string)
	limit, _ := args["max_nodes"].(int)

	result := make([]graphstore.Node, 0)

	for _, node := range s.nodes {
		if !inGroups(node.group, groups) {
			continue
		}
		if !matchesQuery(query, node.Name+" "+node.Summary) {
			continue
		}

		result = append(result, node.Node)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return jsonResult(map[string]any{"nodes": result})
}

func (s *fakeGraphServer) searchFacts(args map[string]any) *mcp.CallToolResult {
	query, _ := args["query"].(string)
	groups, _ := args["group_ids"].([]string)
	limit, _ := args["max_facts"].(int)

	result := make([]graphstore.Fact, 0)

	for _, fact := range s.facts {
		if !inGroups(fact.group, groups) {
			continue
		}
		if !matchesQuery(query, fact.Fact.Fact) {
			continue
		}

		result = append(result, fact.Fact)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return jsonResult(map[string]any{"facts": result})
}

func (s *fakeGraphServer) getEpisodes(args map[string]any) *mcp.CallToolResult {
	groups, _ := args["group_ids"].([]string)
	limit, _ := args["max_episodes"].(int)

	result := make([]graphstore.Episode, 0)

	for i := len(s.episodes) - 1; i >= 0; i-- {
		episode := s.episodes[i]
		if !inGroups(episode.group, groups) {
			continue
		}

		result = append(result, episode.Episode)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return jsonResult(map[string]any{"episodes": result})
}

// fakeAtomicServer implements atomicstore.ToolCaller: a project-scoped
// record store behind the execute_tool meta-tool. It counts project
// creations so tests can assert the container cache works.
type fakeAtomicServer struct {
	mu                 sync.Mutex
	projects           []atomicstore.Project
	records            []fakeRecord
	nextProjectID      int
	nextRecordID       int
	createProjectCalls int
}

type fakeRecord struct {
	atomicstore.Memory
	projectIDs []int
}

func newFakeAtomicServer() *fakeAtomicServer {
	return &fakeAtomicServer{
		nextProjectID: 1,
		nextRecordID:  1,
	}
}

func (s *fakeAtomicServer) addProject(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextProjectID
	s.nextProjectID++
	s.projects = append(s.projects, atomicstore.Project{ID: id, Name: name})

	return id
}

func (s *fakeAtomicServer) addRecord(projectID int, record atomicstore.Memory) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = s.nextRecordID
	s.nextRecordID++

	if record.CreatedAt == "" {
		record.CreatedAt = fakeEpoch.Add(time.Duration(record.ID) * time.Minute).Format(time.RFC3339)
	}

	s.records = append(s.records, fakeRecord{Memory: record, projectIDs: []int{projectID}})

	return record.ID
}

func (s *fakeAtomicServer) CallTool(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("arguments must be a map"), nil
	}

	tool, _ := args["tool_name"].(string)
	toolArgs, _ := args["arguments"].(map[string]any)

	switch tool {
	case "list_projects":
		return jsonResult(map[string]any{"projects": append([]atomicstore.Project{}, s.projects...)}), nil
	case "create_project":
		return s.createProject(toolArgs)
	case "create_memory":
		return s.createMemory(toolArgs)
	case "query_memory":
		return s.queryMemory(toolArgs)
	case "list_memories":
		return s.listMemories(toolArgs)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown tool: %s", tool)), nil
	}
}

func (s *fakeAtomicServer) createProject(args map[string]any) (*mcp.CallToolResult, error) {
	s.createProjectCalls++

	name, _ := args["name"].(string)
	id := s.nextProjectID
	s.nextProjectID++

	s.projects = append(s.projects, atomicstore.Project{ID: id, Name: name})

	return jsonResult(map[string]any{"project_id": id}), nil
}

func (s *fakeAtomicServer) createMemory(args map[string]any) (*mcp.CallToolResult, error) {
	record := atomicstore.Memory{
		Title:      stringArg(args, "title"),
		Content:    stringArg(args, "content"),
		Importance: intArg(args, "importance"),
		Keywords:   stringsArg(args, "keywords"),
		Tags:       stringsArg(args, "tags"),
	}

	record.ID = s.nextRecordID
	s.nextRecordID++
	record.CreatedAt = fakeEpoch.Add(time.Duration(record.ID) * time.Minute).Format(time.RFC3339)

	s.records = append(s.records, fakeRecord{
		Memory:     record,
		projectIDs: intsArg(args, "project_ids"),
	})

	return jsonResult(map[string]any{"memory_id": record.ID}), nil
}

func (s *fakeAtomicServer) queryMemory(args map[string]any) (*mcp.CallToolResult, error) {
	query := stringArg(args, "query")
	projectIDs := intsArg(args, "project_ids")
	limit := intArg(args, "k")

	result := make([]atomicstore.Memory, 0)

	for _, record := range s.records {
		if !inProjects(record.projectIDs, projectIDs) {
			continue
		}

		haystack := record.Title + " " + record.Content + " " + strings.Join(record.Keywords, " ")
		if !matchesQuery(query, haystack) && query != strconv.Itoa(record.ID) {
			continue
		}

		result = append(result, record.Memory)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return jsonResult(map[string]any{"memories": result}), nil
}

func (s *fakeAtomicServer) listMemories(args map[string]any) (*mcp.CallToolResult, error) {
	projectIDs := intsArg(args, "project_ids")
	limit := intArg(args, "limit")

	result := make([]atomicstore.Memory, 0)

	for i := len(s.records) - 1; i >= 0; i-- {
		record := s.records[i]
		if !inProjects(record.projectIDs, projectIDs) {
			continue
		}

		result = append(result, record.Memory)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return jsonResult(map[string]any{"memories": result}), nil
}

// erroringServer satisfies both client ToolCaller interfaces and always
// reports a tool-level failure.
type erroringServer struct {
	message string
}

func (s *erroringServer) CallTool(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(s.message), nil
}

// garbageServer replies with text no result schema can decode.
type garbageServer struct{}

func (s *garbageServer) CallTool(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("this is not json"), nil
}

func jsonResult(value any) *mcp.CallToolResult {
	data, err := json.Marshal(value)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	return mcp.NewToolResultText(string(data))
}

func inGroups(group string, groups []string) bool {
	for _, candidate := range groups {
		if candidate == group {
			return true
		}
	}

	return false
}

func inProjects(recordProjects, wanted []int) bool {
	for _, id := range recordProjects {
		for _, candidate := range wanted {
			if id == candidate {
				return true
			}
		}
	}

	return false
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

func intArg(args map[string]any, key string) int {
	switch value := args[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return 0
	}
}

func stringsArg(args map[string]any, key string) []string {
	switch value := args[key].(type) {
	case []string:
		return value
	case []any:
		result := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

func intsArg(args map[string]any, key string) []int {
	switch value := args[key].(type) {
	case []int:
		return value
	case []any:
		result := make([]int, 0, len(value))
		for _, item := range value {
			switch number := item.(type) {
			case int:
				result = append(result, number)
			case float64:
				result = append(result, int(number))
			}
		}
		return result
	default:
		return nil
	}
}
