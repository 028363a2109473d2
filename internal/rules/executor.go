package rules

import (
	"context"
	"sync"

	"dqengine/domain/validation"

	"golang.org/x/sync/semaphore"
)

// ruleCosts weights rule types by evaluation cost so that expensive rules
// (deduplication, set membership) take a larger share of the budget
var ruleCosts = map[validation.RuleType]int64{
	validation.RuleNotNull:       1,
	validation.RuleCompleteness:  1,
	validation.RuleRange:         1,
	validation.RuleFreshness:     1,
	validation.RulePattern:       2,
	validation.RuleAllowedValues: 2,
	validation.RuleReferential:   2,
	validation.RuleCustom:        2,
	validation.RuleUnique:        3,
}

// executor runs rules concurrently under a weighted semaphore and writes
// results by rule index, so output order equals registration order
type executor struct {
	sem      *semaphore.Weighted
	capacity int64
}

func newExecutor(capacity int) *executor {
	return &executor{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

func (x *executor) cost(t validation.RuleType) int64 {
	c, ok := ruleCosts[t]
	if !ok {
		c = 1
	}
	if c > x.capacity {
		c = x.capacity
	}
	return c
}

// run stops scheduling once ctx ends, waits for the rules already started
// and returns the context error; partial results are never returned
func (x *executor) run(ctx context.Context, rules []validation.Rule, eval func(validation.Rule) validation.Result) ([]validation.Result, error) {
	results := make([]validation.Result, len(rules))
	var wg sync.WaitGroup

	for i, rule := range rules {
		cost := x.cost(rule.Type)
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		if err := x.sem.Acquire(ctx, cost); err != nil {
			wg.Wait()
			return nil, err
		}

		wg.Add(1)
		go func(index int, rule validation.Rule, cost int64) {
			defer wg.Done()
			defer x.sem.Release(cost)
			results[index] = eval(rule)
		}(i, rule, cost)
	}

	wg.Wait()
	return results, nil
}
