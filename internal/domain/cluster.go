package domain

// RepresentativeType classifies a cluster page sampled for evaluation.
type RepresentativeType string

// Representative types. At most one page per cluster may be Best.
const (
	RepresentativeBest    RepresentativeType = "best"
	RepresentativeTypical RepresentativeType = "typical"
	RepresentativeWorst   RepresentativeType = "worst"
)

// Cluster is a group of pages sharing a structural template.
type Cluster struct {
	ID     string `db:"id"      json:"id"`
	ScanID string `db:"scan_id" json:"scan_id"`
	Name   string `db:"name"    json:"name"`
	// PageCount is the total number of pages assigned to the cluster,
	// including pages that were never individually evaluated.
	PageCount int `db:"page_count" json:"page_count"`
}

// ClusterPage joins a page to its cluster, optionally marking it as a
// sampled representative.
type ClusterPage struct {
	ClusterID          string             `db:"cluster_id"          json:"cluster_id"`
	PageID             string             `db:"page_id"             json:"page_id"`
	URL                string             `db:"url"                 json:"url"`
	RepresentativeType RepresentativeType `db:"representative_type" json:"representative_type,omitempty"`
}
