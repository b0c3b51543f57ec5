package atomicstore

// Memory is a single record as the store returns it.
type Memory struct {
	ID              int      `json:"id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Importance      int      `json:"importance"`
	Keywords        []string `json:"keywords"`
	Tags            []string `json:"tags"`
	CreatedAt       string   `json:"created_at"`
	LinkedMemoryIDs []int    `json:"linked_memory_ids"`
}

// Project is the store's unit of isolation. Records always live inside one
// or more projects.
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CreateMemoryRequest struct {
	Title      string
	Content    string
	Importance int
	ProjectIDs []int
	Keywords   []string
	Tags       []string
	Context    string
}

type memoriesResult struct {
	Memories []Memory `json:"memories"`
}

type projectsResult struct {
	Projects []Project `json:"projects"`
}

type createMemoryResult struct {
	MemoryID *int `json:"memory_id"`
	ID       *int `json:"id"`
}

type createProjectResult struct {
	ProjectID *int `json:"project_id"`
	ID        *int `json:"id"`
}
