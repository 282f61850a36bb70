package search

import "github.com/veldtlabs/corpusdb/core"

// QueryMonitor provides hooks to observe the query process.
// Implement this interface to track intermediate steps and results during a
// query, for example to surface scores in diagnostic tooling.
type QueryMonitor interface {
	Start(query string)
	AfterEmbedding(dimension int)
	AfterIndexSearch(matches []core.Match)
	BelowThreshold(match core.Match, threshold float32)
	Finish(results []*core.QueryResult)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterEmbedding(_ int)                        {}
func (n *noopMonitor) AfterIndexSearch(_ []core.Match)             {}
func (n *noopMonitor) BelowThreshold(_ core.Match, _ float32)      {}
func (n *noopMonitor) Finish(_ []*core.QueryResult)                {}
