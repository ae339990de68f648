package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang-collections/collections/queue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/memo"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/rules"
)

// ruleMatch is one binding of a rule waiting to fire.
type ruleMatch struct {
	rule  *rules.Rule
	exprs []*memo.Expr
}

func (m *ruleMatch) key() string {
	ids := make([]string, len(m.exprs))
	for i, e := range m.exprs {
		ids[i] = strconv.Itoa(int(e.ID))
	}
	return m.rule.Name + ":" + strings.Join(ids, ",")
}

// search is the state of one Optimize call. Nothing in it outlives the call.
type search struct {
	ctx      context.Context
	memo     *memo.Memo
	registry *rules.Registry
	opts     options
	log      *logrus.Entry

	queue   *queue.Queue
	queued  mapset.Set[string]
	firings int
}

// Optimize explores the plans equivalent to logical with the rules of
// registry and returns the cheapest one rooted in the required convention.
//
// The search is deterministic: rule matches fire in discovery order and a
// winner is only replaced by a strictly cheaper expression.
func Optimize(ctx context.Context, logical *plan.Node, required plan.Convention, registry *rules.Registry, opts ...Option) (*plan.Node, error) {
	o := newOptions(opts)
	s := &search{
		ctx:      ctx,
		memo:     memo.New(),
		registry: registry,
		opts:     o,
		log:      o.log.WithField("queryId", uuid.New().String()),
		queue:    queue.New(),
		queued:   mapset.NewThreadUnsafeSet[string](),
	}

	start := time.Now()
	best, err := s.run(logical, required)
	elapsed := time.Since(start)
	if o.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		o.metrics.Optimizations.WithLabelValues(outcome).Inc()
		o.metrics.OptimizeLatency.Observe(elapsed.Seconds())
		o.metrics.MemoGroups.Observe(float64(s.memo.NumGroups()))
	}
	if err != nil {
		s.log.Debugf("Optimization failed after %d firings: %v", s.firings, err)
		return nil, err
	}
	s.log.Debugf("Optimized in %s: %d groups, %d exprs, %d firings, cost %.2f",
		elapsed, s.memo.NumGroups(), s.memo.NumExprs(), s.firings, best.Cost())
	return best, nil
}

func (s *search) run(logical *plan.Node, required plan.Convention) (*plan.Node, error) {
	if logical == nil {
		return nil, errorx.NewPlanError("nothing to optimize")
	}
	if required == plan.None {
		return nil, errorx.NewPlanError("required convention must be physical")
	}
	if s.registry == nil {
		return nil, errorx.NewPlanError("no rule registry")
	}
	root, err := s.memo.InsertTree(logical)
	if err != nil {
		return nil, err
	}
	s.settle()

	for s.queue.Len() > 0 {
		if err := s.ctx.Err(); err != nil {
			return nil, errorx.NewPlanError("optimization interrupted: %v", err)
		}
		if s.firings >= s.opts.maxFirings {
			return nil, errorx.NewPlanError("rule firing limit %d reached with %d matches pending", s.opts.maxFirings, s.queue.Len())
		}
		if err := s.fire(s.queue.Dequeue().(*ruleMatch)); err != nil {
			return nil, err
		}
	}

	best, err := s.extract(root, required, map[extractKey]bool{})
	if errorx.IsNoPhysicalPlan(err) {
		return nil, errorx.NewNoPhysicalPlan("%v\nlogical plan:\n%s", err, plan.FormatPlan(logical))
	}
	return best, err
}

func (s *search) fire(match *ruleMatch) error {
	s.firings++
	rule := match.rule
	call := &rules.Call{Rule: rule, Memo: s.memo, Exprs: match.exprs, Log: s.log.WithField("rule", rule.Name)}
	alts, err := rule.Apply(call)
	if errors.Is(err, errorx.ErrRuleDeclined) {
		call.Log.Tracef("Declined on %s", match.exprs[0].Op.Explain())
		s.count(rule, "declined")
		return nil
	}
	if err != nil {
		s.count(rule, "error")
		if _, ok := errorx.CodeOf(err); ok {
			return fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		return errorx.NewPlanError("rule %s failed: %v", rule.Name, err)
	}
	s.count(rule, "applied")
	call.Log.Tracef("Fired on %s[%s], %d alternatives", match.exprs[0].Op.Explain(), match.exprs[0].Conv, len(alts))

	target := s.memo.Find(match.exprs[0].Group)
	for _, alt := range alts {
		g, err := s.memo.Insert(alt, target)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		target = g
	}
	s.settle()
	return nil
}

func (s *search) count(rule *rules.Rule, outcome string) {
	if s.opts.metrics != nil {
		s.opts.metrics.RuleFirings.WithLabelValues(rule.Name, outcome).Inc()
	}
}

// settle queues the matches and updates the costs following the latest
// registrations and merges.
func (s *search) settle() {
	for _, id := range s.memo.TakeAdded() {
		e := s.memo.Expr(id)
		s.explore(e)
		s.costExpr(e)
	}
	for _, g := range s.memo.TakeMerged() {
		for _, id := range s.memo.Group(g).Exprs {
			e := s.memo.Expr(id)
			s.explore(e)
			s.costExpr(e)
		}
		s.propagate(g)
	}
}

// explore queues the rules e triggers as pattern root, and the rules it
// completes as an operand below its ancestors.
func (s *search) explore(e *memo.Expr) {
	for _, r := range s.registry.ForRoot(e.Op.Kind(), e.Conv) {
		s.enqueue(r, e)
	}
	byChild := s.registry.ForChild(e.Op.Kind(), e.Conv)
	if len(byChild) == 0 {
		return
	}
	frontier := []memo.GroupID{s.memo.Find(e.Group)}
	for level := 1; level < s.registry.Depth(); level++ {
		var next []memo.GroupID
		for _, g := range frontier {
			for _, pid := range s.memo.Parents(g) {
				p := s.memo.Expr(pid)
				for _, r := range byChild {
					s.enqueue(r, p)
				}
				next = append(next, s.memo.Find(p.Group))
			}
		}
		frontier = next
	}
}

func (s *search) enqueue(r *rules.Rule, root *memo.Expr) {
	for _, b := range r.Pattern.Bindings(s.memo, root) {
		m := &ruleMatch{rule: r, exprs: b}
		key := m.key()
		if s.queued.Contains(key) {
			continue
		}
		s.queued.Add(key)
		s.queue.Enqueue(m)
	}
}

// costExpr offers e to its group once every input group has a winner in the
// convention e requires from it. Expressions reading their own group are
// never offered.
func (s *search) costExpr(e *memo.Expr) {
	if e.Conv == plan.None || s.memo.SelfLoop(e) {
		return
	}
	g := s.memo.GroupOf(e.ID)
	want := plan.RequiredInput(e.Op, e.Conv)
	total := 0.0
	rows := make([]float64, len(e.Inputs))
	for i := range e.Inputs {
		in := s.memo.Input(e, i)
		w, ok := in.Best(want)
		if !ok {
			return
		}
		total += w.Cost
		rows[i] = in.Rows
	}
	total += s.opts.cost.Local(e.Op, e.Conv, g.Rows, rows)
	if g.Offer(e.Conv, e.ID, total) {
		s.log.Debugf("Group %d %s winner: %s cost=%.2f", g.ID, e.Conv, e.Op.Explain(), total)
		s.propagate(g.ID)
	}
}

func (s *search) propagate(g memo.GroupID) {
	for _, pid := range s.memo.Parents(g) {
		s.costExpr(s.memo.Expr(pid))
	}
}

type extractKey struct {
	group memo.GroupID
	conv  plan.Convention
}

// extract builds the winner tree of g in conv.
func (s *search) extract(g memo.GroupID, conv plan.Convention, path map[extractKey]bool) (*plan.Node, error) {
	grp := s.memo.Group(g)
	key := extractKey{group: grp.ID, conv: conv}
	if path[key] {
		return nil, errorx.NewNoPhysicalPlan("group %d has a cyclic %s winner", grp.ID, conv)
	}
	w, ok := grp.Best(conv)
	if !ok {
		return nil, errorx.NewNoPhysicalPlan("group %d (%s) has no %s implementation", grp.ID, s.describe(grp), conv)
	}
	path[key] = true
	defer delete(path, key)

	e := s.memo.Expr(w.Expr)
	children := make([]*plan.Node, len(e.Inputs))
	for i, in := range e.Inputs {
		c, err := s.extract(in, plan.RequiredInput(e.Op, e.Conv), path)
		if err != nil {
			return nil, err
		}
		children[i] = c
	}
	n, err := plan.New(e.Op, e.Conv, children...)
	if err != nil {
		return nil, err
	}
	return n.WithEstimates(grp.Rows, w.Cost), nil
}

func (s *search) describe(g *memo.Group) string {
	parts := make([]string, 0, len(g.Exprs))
	for _, id := range g.Exprs {
		e := s.memo.Expr(id)
		parts = append(parts, fmt.Sprintf("%s[%s]", e.Op.Kind(), e.Conv))
	}
	return strings.Join(parts, ", ")
}
