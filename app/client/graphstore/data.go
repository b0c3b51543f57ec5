package graphstore

// Node is an entity extracted by the store from saved episodes.
type Node struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

// Fact is a directed edge between two nodes.
type Fact struct {
	Fact           string `json:"fact"`
	SourceNodeUUID string `json:"source_node_uuid"`
	TargetNodeUUID string `json:"target_node_uuid"`
	CreatedAt      string `json:"created_at"`
}

// Episode is the store's unit of raw saved text.
type Episode struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

type AddEpisodeRequest struct {
	Name              string
	Body              string
	GroupID           string
	Source            string
	SourceDescription string
}

type searchNodesResult struct {
	Nodes []Node `json:"nodes"`
}

type searchFactsResult struct {
	Facts []Fact `json:"facts"`
}

type getEpisodesResult struct {
	Episodes []Episode `json:"episodes"`
}

type addEpisodeResult struct {
	EpisodeID string `json:"episode_id"`
	UUID      string `json:"uuid"`
}
