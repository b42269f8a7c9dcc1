// Package drivertest provides an in-memory driver.Driver used by this
// module's own tests and available to downstream consumers who want to
// exercise graphstore without a real backend. It understands only the
// small, fixed set of Cypher shapes this module's compiler and CRUD
// helpers emit — it is not a general Cypher interpreter.
package drivertest

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"graphmodel/driver"
)

type nodeRecord struct {
	id     string
	labels []string
	props  map[string]any
}

// relRecord is keyed into f.nodes by startID/endID, which for an
// ordinary node equals its "id" property and for an anonymous carrier
// node (§4.3's value-property carriers, which have no id of their own)
// is a synthetic bookkeeping key instead.
type relRecord struct {
	id      string
	relType string
	startID string
	endID   string
	props   map[string]any
	carrier bool
}

// Fake is an in-memory graph store speaking the driver.Driver contract.
type Fake struct {
	mu         sync.Mutex
	nodes      map[string]*nodeRecord
	rels       map[string]*relRecord
	carrierSeq int
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{nodes: make(map[string]*nodeRecord), rels: make(map[string]*relRecord)}
}

func (f *Fake) Verify(ctx context.Context) error { return nil }

func (f *Fake) Close(ctx context.Context) error { return nil }

func (f *Fake) NewSession(ctx context.Context, database string) (driver.Session, error) {
	return &fakeSession{f: f}, nil
}

type fakeSession struct{ f *Fake }

func (s *fakeSession) Close(ctx context.Context) error { return nil }

func (s *fakeSession) BeginTx(ctx context.Context) (driver.Tx, error) {
	return &fakeTx{f: s.f}, nil
}

func (s *fakeSession) Run(ctx context.Context, cypher string, params map[string]any) (driver.Cursor, error) {
	return s.f.exec(cypher, params)
}

type fakeTx struct{ f *Fake }

func (t *fakeTx) Run(ctx context.Context, cypher string, params map[string]any) (driver.Cursor, error) {
	return t.f.exec(cypher, params)
}

func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

func (f *Fake) exec(cypher string, params map[string]any) (driver.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasPrefix(cypher, "CREATE (n"):
		return f.execCreateNode(cypher, params)
	case strings.HasPrefix(cypher, "MATCH (a {id:"):
		return f.execCreateRelationship(cypher, params)
	case strings.Contains(cypher, "SET n +="):
		return f.execSetNode(params)
	case strings.HasPrefix(cypher, "MATCH (n {id: $id})") && strings.Contains(cypher, "DELETE n,"):
		return f.execDeleteNode(cypher, params)
	case strings.Contains(cypher, "DELETE r"):
		return f.execDeleteRelationship(params)
	case strings.Contains(cypher, "RETURN n, labels(n)"):
		return f.execGetNode(params)
	case strings.Contains(cypher, "RETURN [x IN collect("):
		return f.execGetRelatedOnly(params)
	default:
		return &sliceCursor{}, nil
	}
}

var (
	entityCarrierRe = regexp.MustCompile(`^CREATE \((\w+)\)-\[:([\w_]+)\]->\((\w+) (\$\w+)\)$`)
	valueCarrierRe  = regexp.MustCompile(`^CREATE \((\w+)\)-\[:([\w_]+) \{value: (\$\w+)\}\]->\((\w+)\)$`)
)

func (f *Fake) execCreateNode(cypher string, params map[string]any) (driver.Cursor, error) {
	lines := strings.Split(cypher, "\n")

	labels := extractLabels(lines[0], "(n", ")")
	props, _ := params["props"].(map[string]any)
	id, _ := props["id"].(string)
	f.nodes[id] = &nodeRecord{id: id, labels: labels, props: props}
	aliasKey := map[string]string{"n": id}

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "RETURN") {
			continue
		}
		if m := entityCarrierRe.FindStringSubmatch(line); m != nil {
			parentAlias, relType, childAlias, paramName := m[1], m[2], m[3], strings.TrimPrefix(m[4], "$")
			cprops, _ := params[paramName].(map[string]any)
			childID, _ := cprops["id"].(string)
			childKey := childID
			if childKey == "" {
				f.carrierSeq++
				childKey = carrierKey(f.carrierSeq)
			}
			f.nodes[childKey] = &nodeRecord{id: childID, props: cprops}
			aliasKey[childAlias] = childKey
			f.addCarrierRel(relType, aliasKey[parentAlias], childKey, map[string]any{})
			continue
		}
		if m := valueCarrierRe.FindStringSubmatch(line); m != nil {
			parentAlias, relType, paramName, childAlias := m[1], m[2], strings.TrimPrefix(m[3], "$"), m[4]
			val := params[paramName]
			f.carrierSeq++
			childKey := carrierKey(f.carrierSeq)
			f.nodes[childKey] = &nodeRecord{props: map[string]any{}}
			aliasKey[childAlias] = childKey
			f.addCarrierRel(relType, aliasKey[parentAlias], childKey, map[string]any{"value": val})
			continue
		}
	}
	return &sliceCursor{keys: []string{"id"}, rows: []driver.Record{{"id": id}}}, nil
}

func (f *Fake) addCarrierRel(relType, startKey, endKey string, props map[string]any) {
	f.carrierSeq++
	relKey := carrierKey(f.carrierSeq)
	f.rels[relKey] = &relRecord{relType: relType, startID: startKey, endID: endKey, props: props, carrier: true}
}

func carrierKey(n int) string {
	return "~carrier~" + strconv.Itoa(n)
}

func (f *Fake) execCreateRelationship(cypher string, params map[string]any) (driver.Cursor, error) {
	relType := extractRelType(cypher)
	props, _ := params["props"].(map[string]any)
	id, _ := props["id"].(string)
	startID, _ := params["startId"].(string)
	endID, _ := params["endId"].(string)
	f.rels[id] = &relRecord{id: id, relType: relType, startID: startID, endID: endID, props: props}
	return &sliceCursor{keys: []string{"id"}, rows: []driver.Record{{"id": id}}}, nil
}

func (f *Fake) execSetNode(params map[string]any) (driver.Cursor, error) {
	id, _ := params["id"].(string)
	n, ok := f.nodes[id]
	if !ok {
		return &sliceCursor{}, nil
	}
	props, _ := params["props"].(map[string]any)
	for k, v := range props {
		n.props[k] = v
	}
	return &sliceCursor{keys: []string{"id"}, rows: []driver.Record{{"id": id}}}, nil
}

func (f *Fake) execDeleteNode(cypher string, params map[string]any) (driver.Cursor, error) {
	id, _ := params["id"].(string)
	if !strings.Contains(cypher, "DETACH") {
		for _, r := range f.rels {
			if r.carrier {
				continue
			}
			if r.startID == id || r.endID == id {
				return nil, errConstraint{}
			}
		}
	}
	f.deleteCarrierSubtree(id)
	delete(f.nodes, id)
	for rid, r := range f.rels {
		if r.startID == id || r.endID == id {
			delete(f.rels, rid)
		}
	}
	return &sliceCursor{}, nil
}

// deleteCarrierSubtree removes every carrier relationship/node reachable
// from id, matching the variable-length OPTIONAL MATCH the real Cypher
// statement expresses declaratively.
func (f *Fake) deleteCarrierSubtree(id string) {
	var children []string
	for rid, r := range f.rels {
		if r.carrier && r.startID == id {
			children = append(children, r.endID)
			delete(f.rels, rid)
		}
	}
	for _, c := range children {
		f.deleteCarrierSubtree(c)
		delete(f.nodes, c)
	}
}

func (f *Fake) execDeleteRelationship(params map[string]any) (driver.Cursor, error) {
	id, _ := params["id"].(string)
	delete(f.rels, id)
	return &sliceCursor{}, nil
}

func (f *Fake) execGetNode(params map[string]any) (driver.Cursor, error) {
	id, _ := params["id"].(string)
	n, ok := f.nodes[id]
	if !ok {
		return &sliceCursor{keys: []string{"n", "labels", "related_nodes"}}, nil
	}
	labelsAny := make([]any, len(n.labels))
	for i, l := range n.labels {
		labelsAny[i] = l
	}
	return &sliceCursor{
		keys: []string{"n", "labels", "related_nodes"},
		rows: []driver.Record{{"n": n.props, "labels": labelsAny, "related_nodes": f.relatedNodesOf(id)}},
	}, nil
}

// execGetRelatedOnly serves graphstore's recursive complex-property
// hydration queries, which only ask for the one-hop related_nodes
// collection of an already-known node id (no labels/full props needed).
func (f *Fake) execGetRelatedOnly(params map[string]any) (driver.Cursor, error) {
	id, _ := params["id"].(string)
	if _, ok := f.nodes[id]; !ok {
		return &sliceCursor{keys: []string{"related_nodes"}}, nil
	}
	return &sliceCursor{
		keys: []string{"related_nodes"},
		rows: []driver.Record{{"related_nodes": f.relatedNodesOf(id)}},
	}, nil
}

func (f *Fake) relatedNodesOf(id string) []any {
	var related []any
	for _, r := range f.rels {
		if !r.carrier || r.startID != id {
			continue
		}
		var nodeProps map[string]any
		if child, ok := f.nodes[r.endID]; ok {
			nodeProps = child.props
		}
		related = append(related, map[string]any{
			"rel_type":  r.relType,
			"rel_props": r.props,
			"node":      nodeProps,
		})
	}
	return related
}

type errConstraint struct{}

func (errConstraint) Error() string { return "constraint violation: node has remaining relationships" }

func extractLabels(s, start, end string) []string {
	i := strings.Index(s, start)
	if i < 0 {
		return nil
	}
	s = s[i+len(start):]
	j := strings.IndexAny(s, " )")
	if j < 0 {
		return nil
	}
	lbl := s[:j]
	lbl = strings.TrimPrefix(lbl, ":")
	if lbl == "" {
		return nil
	}
	return strings.Split(lbl, ":")
}

func extractRelType(s string) string {
	i := strings.Index(s, "-[r:")
	if i < 0 {
		return ""
	}
	s = s[i+len("-[r:"):]
	j := strings.Index(s, " ")
	if j < 0 {
		return s
	}
	return s[:j]
}

// sliceCursor is a pre-materialized driver.Cursor over a fixed slice of
// records.
type sliceCursor struct {
	keys []string
	rows []driver.Record
	pos  int
}

func (c *sliceCursor) Keys() []string { return c.keys }

func (c *sliceCursor) Next(ctx context.Context) (driver.Record, error) {
	if c.pos >= len(c.rows) {
		return nil, driver.Done
	}
	r := c.rows[c.pos]
	c.pos++
	return r, nil
}

func (c *sliceCursor) Close(ctx context.Context) error { return nil }
