package models

// EdgeCleanup lists edge lambdas whose deletion has to wait until their
// replicas are released. It is both the on-disk queue file and the SQS body.
type EdgeCleanup struct {
	EdgeLambdaNames []string `json:"edgeLambdaNames"`
}

// NewEdgeCleanup returns a document whose list marshals as [] rather than null
func NewEdgeCleanup(names ...string) EdgeCleanup {
	if names == nil {
		names = []string{}
	}
	return EdgeCleanup{EdgeLambdaNames: names}
}
