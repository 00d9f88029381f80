// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package eval answers fleet-wide evaluation requests. Clusters never run
// code received from the medium: a request names one of the queries
// registered locally, and is only served when it carries a signature made
// with the fleet shared secret.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tochemey/sharder/broadcast"
	"github.com/tochemey/sharder/internal/xsync"
	"github.com/tochemey/sharder/log"
)

// Kind is the broadcast request kind of evaluation requests
const Kind = "eval"

// Func computes the value of a query on the local cluster
type Func func(ctx context.Context, args []string) (any, error)

// Request is the payload of an evaluation request
type Request struct {
	Query string   `json:"query"`
	Args  []string `json:"args,omitempty"`
}

// Result is the answer of one cluster
type Result struct {
	Cluster int             `json:"cluster"`
	Value   json.RawMessage `json:"value,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Registry is the allow-list of the queries a cluster agrees to evaluate
type Registry struct {
	queries *xsync.Map[string, Func]
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{queries: xsync.NewMap[string, Func]()}
}

// Register adds or replaces a query
func (r *Registry) Register(name string, fn Func) {
	r.queries.Set(name, fn)
}

// Lookup returns the query registered under name
func (r *Registry) Lookup(name string) (Func, bool) {
	return r.queries.Get(name)
}

// Names lists the registered queries in lexical order
func (r *Registry) Names() []string {
	names := r.queries.Keys()
	sort.Strings(names)
	return names
}

// Evaluator serves the evaluation requests addressed to a cluster
type Evaluator struct {
	clusterID int
	registry  *Registry
	signer    *Signer
	logger    log.Logger
}

// NewEvaluator creates an Evaluator. A nil signer disables evaluation:
// every request is then ignored.
func NewEvaluator(clusterID int, registry *Registry, signer *Signer, logger log.Logger) *Evaluator {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Evaluator{
		clusterID: clusterID,
		registry:  registry,
		signer:    signer,
		logger:    logger,
	}
}

// Handle answers an evaluation request. It has the shape of a broadcast handler.
func (e *Evaluator) Handle(ctx context.Context, request *broadcast.Request) (any, bool, error) {
	if e.signer == nil {
		return nil, false, nil
	}

	if !e.signer.Verify(request.CorrelationID, request.Payload, request.Signature) {
		e.logger.Warnf("ignoring evaluation request %s from %s: invalid signature", request.CorrelationID, request.Origin)
		return nil, false, nil
	}

	var in Request
	if err := json.Unmarshal(request.Payload, &in); err != nil {
		return e.failure(fmt.Errorf("malformed request: %w", err)), true, nil
	}
	return e.Evaluate(ctx, in), true, nil
}

// Evaluate runs the named query on the local cluster.
// Unknown queries and failures are reported in the result.
func (e *Evaluator) Evaluate(ctx context.Context, request Request) (result *Result) {
	fn, ok := e.registry.Lookup(request.Query)
	if !ok {
		return e.failure(fmt.Errorf("unknown query %q", request.Query))
	}

	defer func() {
		if r := recover(); r != nil {
			result = e.failure(fmt.Errorf("query %q panicked: %v", request.Query, r))
		}
	}()

	value, err := fn(ctx, request.Args)
	if err != nil {
		return e.failure(fmt.Errorf("query %q failed: %w", request.Query, err))
	}

	bytea, err := json.Marshal(value)
	if err != nil {
		return e.failure(fmt.Errorf("query %q returned an unencodable value: %w", request.Query, err))
	}
	return &Result{Cluster: e.clusterID, Value: bytea}
}

func (e *Evaluator) failure(err error) *Result {
	e.logger.Debug(err)
	return &Result{Cluster: e.clusterID, Error: err.Error()}
}

// DecodeResults parses the raw results received from the fleet.
// A malformed entry is kept as a failed result.
func DecodeResults(responses []json.RawMessage) []*Result {
	results := make([]*Result, 0, len(responses))
	for _, response := range responses {
		result := new(Result)
		if err := json.Unmarshal(response, result); err != nil {
			result = &Result{Cluster: -1, Error: fmt.Sprintf("malformed result: %v", err)}
		}
		results = append(results, result)
	}
	return results
}
