package rubric

import (
	"context"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/cluster"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// Skip reasons recorded on check results.
const (
	skipReasonLLMBudget    = "skipped due to budget: llm calls exhausted"
	skipReasonRenderBudget = "skipped due to budget: renders exhausted"
	skipReasonLLMError     = "llm evaluation failed"
)

// repOrder fixes the evaluation order of representatives so results are
// reproducible.
var repOrder = []domain.RepresentativeType{
	domain.RepresentativeBest,
	domain.RepresentativeTypical,
	domain.RepresentativeWorst,
}

// Evaluator runs every registered check against cluster representatives,
// admitting renders and LLM calls through the scan's budget controller.
type Evaluator struct {
	registry *Registry
	budget   *budget.Controller
	llm      LLMClient
	renderer crawl.Renderer
	log      logger.Interface
}

// NewEvaluator creates an evaluator. The registry is injected so tests
// can substitute fixture rubrics.
func NewEvaluator(
	registry *Registry,
	ctrl *budget.Controller,
	llm LLMClient,
	renderer crawl.Renderer,
	log logger.Interface,
) *Evaluator {
	return &Evaluator{
		registry: registry,
		budget:   ctrl,
		llm:      llm,
		renderer: renderer,
		log:      log,
	}
}

// EvaluateClusters scores every representative of every cluster against
// the full rubric. Budget denials and evaluation failures skip
// individual checks, never the scan.
func (e *Evaluator) EvaluateClusters(ctx context.Context, clusters []*cluster.PageCluster) []Outcome {
	var outcomes []Outcome

	for _, pc := range clusters {
		outcomes = append(outcomes, e.evaluateCluster(ctx, pc)...)
	}

	return outcomes
}

// evaluateCluster scores each sampled representative of one cluster.
func (e *Evaluator) evaluateCluster(ctx context.Context, pc *cluster.PageCluster) []Outcome {
	var outcomes []Outcome

	for _, repType := range repOrder {
		rep, ok := pc.Representatives[repType]
		if !ok {
			continue
		}

		results := e.evaluatePage(ctx, rep)
		for _, result := range results {
			outcomes = append(outcomes, Outcome{
				Check:            result.check,
				Result:           result.result,
				ClusterID:        pc.Cluster.ID,
				ClusterName:      pc.Cluster.Name,
				ClusterPageCount: pc.Cluster.PageCount,
				PageURL:          rep.Page.URL,
			})
		}
	}

	return outcomes
}

// checkedResult pairs a result with its check definition.
type checkedResult struct {
	check  *Check
	result CheckResult
}

// evaluatePage runs the full rubric against one page.
func (e *Evaluator) evaluatePage(ctx context.Context, page *crawl.PageData) []checkedResult {
	pageCtx, ctxErr := NewPageContext(page.Page.URL, page.HTML)
	if ctxErr != nil {
		e.log.Warn("page unparsable, skipping evaluation",
			"url", page.Page.URL,
			"error", ctxErr.Error(),
		)
		return nil
	}

	renderState := e.maybeRender(ctx, pageCtx)
	if renderState == renderOK {
		page.Page.Rendered = true
	}

	results := make([]checkedResult, 0, len(e.registry.Checks))
	for _, check := range e.registry.Checks {
		results = append(results, checkedResult{
			check:  check,
			result: e.runCheck(ctx, check, pageCtx, renderState),
		})
	}

	return results
}

// renderOutcome describes what happened to the page's render attempt.
type renderOutcome int

const (
	renderNotNeeded renderOutcome = iota
	renderOK
	renderBudgetDenied
	renderFailed
)

// maybeRender renders the page when any check needs DOM state, admitting
// the render through the budget first.
func (e *Evaluator) maybeRender(ctx context.Context, pageCtx *PageContext) renderOutcome {
	needed := false
	for _, check := range e.registry.Checks {
		if check.NeedsRender {
			needed = true
			break
		}
	}
	if !needed || e.renderer == nil {
		return renderNotNeeded
	}

	if !e.budget.TryAdmit(domain.BudgetRender, 1) {
		return renderBudgetDenied
	}

	html, renderErr := e.renderer.Render(ctx, pageCtx.URL)
	if renderErr != nil {
		e.log.Warn("render failed", "url", pageCtx.URL, "error", renderErr.Error())
		return renderFailed
	}

	if attachErr := pageCtx.AttachRendered(html); attachErr != nil {
		return renderFailed
	}

	return renderOK
}

// runCheck dispatches one check against a page context.
func (e *Evaluator) runCheck(
	ctx context.Context,
	check *Check,
	pageCtx *PageContext,
	renderState renderOutcome,
) CheckResult {
	result := CheckResult{CheckID: check.ID, PillarID: check.PillarID}

	if check.NeedsRender {
		switch renderState {
		case renderBudgetDenied:
			result.Skipped = true
			result.SkipReason = skipReasonRenderBudget
			return result
		case renderFailed:
			result.Inconclusive = true
			result.Evidence = []domain.Evidence{{
				Type: "render_error", Content: "headless render failed", PageURL: pageCtx.URL,
			}}
			return result
		}
	}

	switch check.Kind {
	case KindSemantic:
		return e.runSemanticCheck(ctx, check, pageCtx, result)
	default:
		result.Score, result.Evidence = check.Eval(pageCtx)
		return result
	}
}

// runSemanticCheck admits and issues one LLM call for a semantic check.
// A denied budget or failed call skips the check without failing the scan.
func (e *Evaluator) runSemanticCheck(
	ctx context.Context,
	check *Check,
	pageCtx *PageContext,
	result CheckResult,
) CheckResult {
	if e.llm == nil {
		result.Skipped = true
		result.SkipReason = "no llm client configured"
		return result
	}

	if !e.budget.TryAdmit(domain.BudgetLLMCall, 1) {
		result.Skipped = true
		result.SkipReason = skipReasonLLMBudget
		return result
	}

	prompt := check.Prompt(pageCtx)
	granted, truncated := e.budget.AdmitTokens(EstimateTokens(prompt))
	result.Truncated = truncated
	if truncated {
		result.Evidence = append(result.Evidence, domain.Evidence{
			Type:    "truncated",
			Content: "prompt truncated to fit the per-call token budget",
			PageURL: pageCtx.URL,
		})
	}

	response, callErr := e.llm.Complete(ctx, prompt, granted)
	if callErr != nil {
		result.Skipped = true
		result.SkipReason = skipReasonLLMError
		result.Evidence = append(result.Evidence, domain.Evidence{
			Type: "evaluation_error", Content: callErr.Error(), PageURL: pageCtx.URL,
		})
		return result
	}

	score, parseErr := ParseScore(response)
	if parseErr != nil {
		result.Inconclusive = true
		result.Evidence = append(result.Evidence, domain.Evidence{
			Type: "evaluation_error", Content: parseErr.Error(), PageURL: pageCtx.URL,
		})
		return result
	}

	result.Score = score
	return result
}
