package specialist

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	"github.com/tanpawarit/Chative-Banking-Frontline/agent/nlu"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
	toolx "github.com/tanpawarit/Chative-Banking-Frontline/agent/tool"
)

const (
	textInterviewStart = "Vamos atualizar seus dados para reavaliar seu score.\n\n" +
		"Informe os seguintes dados (pode ser em uma única mensagem):\n" +
		"- Renda mensal\n" +
		"- Ocupação (Formal, Autônomo, Desempregado)\n" +
		"- Despesas fixas\n" +
		"- Número de dependentes\n" +
		"- Possui dívidas ativas? (Sim, Não)"
	textInterviewNLUDown   = "Desculpe, meu sistema falhou ao interpretar suas informações. Poderia enviá-las de novo?"
	textInterviewClosed    = "Entrevista cancelada. Atendimento encerrado."
	textInterviewMissing   = "Ainda faltam alguns dados. Informe:\n- %s"
	textScoreSaveFailed    = "Ocorreu um erro técnico ao salvar seu novo score no banco de dados. Tente novamente mais tarde."
	textInterviewCompleted = "Dados atualizados.\nScore recalculado: %d ➔ **%d**.\nAgora podemos prosseguir com o crédito."
)

// Score bounds and weights.
const (
	MinScore     = 0
	MaxScore     = 1000
	incomeWeight = 30
)

var (
	employmentWeight = map[statex.Employment]float64{
		statex.EmploymentFormal:     300,
		statex.EmploymentAutonomous: 200,
		statex.EmploymentUnemployed: 0,
	}
	dependentsWeight = map[string]float64{"0": 100, "1": 80, "2": 60, "3+": 30}
)

// interviewAgent collects the financial profile over several turns and recomputes the score.
type interviewAgent struct {
	base
}

func newInterview(classifier contractx.Classifier, deps Deps) *interviewAgent {
	return &interviewAgent{base: base{kind: contractx.AgentTypeInterview, classifier: classifier, deps: deps}}
}

func (a *interviewAgent) Handle(ctx context.Context, req contractx.TurnRequest) contractx.TurnResult {
	s := req.Session
	customer, denied := a.customer(s)
	if denied != nil {
		return *denied
	}

	if s.InterviewState != statex.InterviewCollecting {
		// The triggering message is ignored; the form is always asked first.
		s.Interview = &statex.InterviewDraft{}
		s.InterviewState = statex.InterviewCollecting
		return contractx.Continue(textInterviewStart)
	}
	if s.Interview == nil {
		s.Interview = &statex.InterviewDraft{}
	}

	msg := strings.TrimSpace(req.Message)
	if req.Entry || msg == "" {
		return contractx.Continue(missingText(s.Interview))
	}

	rec, err := a.extract(ctx, s, a.deps.Prompts.Interview, msg)
	if err != nil {
		return contractx.Continue(textInterviewNLUDown)
	}

	if back, ok := rec.Bool("voltar"); ok && back {
		resetInterview(s)
		return contractx.SilentTransfer(contractx.AgentTypeTriage)
	}
	if done, ok := rec.Bool("encerrar"); ok && done {
		resetInterview(s)
		s.Close()
		return contractx.Close(textInterviewClosed)
	}

	s.Interview = MergeTurn(s.Interview, rec, msg)

	if !s.Interview.Complete() {
		return contractx.Continue(missingText(s.Interview))
	}

	score := ComputeScore(*s.Interview)

	// Persist first: the session must not claim a score the registry never stored.
	callCtx, cancel := a.call(ctx)
	err = a.deps.Registry.UpdateScore(callCtx, customer.ID, score)
	cancel()
	if err != nil {
		a.failed(s, collabRegistry, err)
		resetInterview(s)
		return contractx.Transfer(contractx.AgentTypeTriage, textScoreSaveFailed)
	}

	previous := customer.Score
	customer.Score = score
	resetInterview(s)
	s.Flags.CreditMenuOnEntry = true
	a.logger(s).Info().Int("previous_score", previous).Int("score", score).Msg("score updated")
	return contractx.Transfer(contractx.AgentTypeCredit, fmt.Sprintf(textInterviewCompleted, previous, score))
}

func resetInterview(s *statex.Session) {
	s.InterviewState = statex.InterviewStart
	s.Interview = nil
}

func missingText(d *statex.InterviewDraft) string {
	return fmt.Sprintf(textInterviewMissing, strings.Join(d.Missing(), "\n- "))
}

// ComputeScore applies the score formula to a draft. Negative amounts count as zero
// and the result is always within [MinScore, MaxScore].
func ComputeScore(d statex.InterviewDraft) int {
	income, expenses := 0.0, 0.0
	if d.Income != nil {
		income = math.Max(0, *d.Income)
	}
	if d.Expenses != nil {
		expenses = math.Max(0, *d.Expenses)
	}

	total := incomeWeight * income / (expenses + 1)
	if d.Employment != nil {
		total += employmentWeight[*d.Employment]
	}

	deps := dependentsWeight["3+"]
	if d.Dependents != nil {
		if w, ok := dependentsWeight[*d.Dependents]; ok {
			deps = w
		}
	}
	total += deps

	if d.HasDebt != nil {
		if *d.HasDebt {
			total -= 100
		} else {
			total += 100
		}
	}

	if math.IsNaN(total) {
		return MinScore
	}
	total = math.Round(total)
	switch {
	case total < MinScore:
		return MinScore
	case total > MaxScore:
		return MaxScore
	default:
		return int(total)
	}
}

// MergeRecord copies every non-null classifier field into d. Later non-null values win;
// a null never clears an earlier answer.
func MergeRecord(d *statex.InterviewDraft, rec contractx.Record) {
	if v, ok := rec.Float("renda"); ok {
		d.Income = &v
	}
	if v, ok := rec.Float("despesas"); ok {
		d.Expenses = &v
	}
	if v, ok := rec.String("emprego"); ok {
		if e, ok := parseEmployment(v); ok {
			d.Employment = &e
		}
	}
	if v, ok := rec.String("dependentes"); ok {
		if dep, ok := parseDependents(v); ok {
			d.Dependents = &dep
		}
	}
	if v, ok := rec.Bool("dividas"); ok {
		d.HasDebt = &v
	}
}

var (
	bareAmountPattern = regexp.MustCompile(`^(r\$\s*)?\d[\d.,]*$`)
	dependentsPattern = regexp.MustCompile(`\b(\d+|um|uma|dois|duas|tres)\s+(dependente|filho)`)

	incomeKeywords  = []string{"renda", "salario", "ganho", "recebo"}
	expenseKeywords = []string{"despesa", "gasto", "custo"}

	wordCounts = map[string]string{"um": "1", "uma": "1", "dois": "2", "duas": "2", "tres": "3+"}
)

// MergeTurn folds one answer into a copy of d. The heuristics read the draft as it
// stood before this turn and the classifier's non-null fields are laid over their
// result, so neither pass sees what the other filled. A bare number is only guessed
// into a field when the classifier placed nothing this turn.
func MergeTurn(d *statex.InterviewDraft, rec contractx.Record, message string) *statex.InterviewDraft {
	next := d.Clone()
	if next == nil {
		next = &statex.InterviewDraft{}
	}
	applyHeuristics(next, message, !answersAnything(rec))
	MergeRecord(next, rec)
	return next
}

func answersAnything(rec contractx.Record) bool {
	var scratch statex.InterviewDraft
	MergeRecord(&scratch, rec)
	return scratch != statex.InterviewDraft{}
}

// ApplyHeuristics fills empty fields from the raw message.
// It never overwrites a field that already has a value.
func ApplyHeuristics(d *statex.InterviewDraft, message string) {
	applyHeuristics(d, message, true)
}

func applyHeuristics(d *statex.InterviewDraft, message string, bareNumbers bool) {
	folded := nlu.Fold(message)

	if d.Expenses == nil && containsAny(folded, "sem despesa", "nao tenho despesa", "0 despesa") {
		zero := 0.0
		d.Expenses = &zero
	}
	if d.Income == nil && containsAny(folded, "sem renda", "0 renda") {
		zero := 0.0
		d.Income = &zero
	}

	if d.Income == nil {
		if v, ok := amountAfter(folded, incomeKeywords); ok {
			d.Income = &v
		}
	}
	if d.Expenses == nil {
		if v, ok := amountAfter(folded, expenseKeywords); ok {
			d.Expenses = &v
		}
	}
	if bareNumbers && bareAmountPattern.MatchString(folded) {
		if v, ok := toolx.ParseNonNegative(folded); ok {
			switch {
			case d.Income == nil:
				d.Income = &v
			case d.Expenses == nil:
				d.Expenses = &v
			}
		}
	}

	if d.Employment == nil {
		if e, ok := parseEmployment(folded); ok {
			d.Employment = &e
		}
	}

	if d.Dependents == nil {
		if m := dependentsPattern.FindStringSubmatch(folded); m != nil {
			if dep, ok := parseDependents(m[1]); ok {
				d.Dependents = &dep
			}
		} else if containsAny(folded, "sem dependente", "nenhum dependente", "nao tenho dependente", "sem filho", "nao tenho filho") {
			dep := "0"
			d.Dependents = &dep
		}
	}

	if d.HasDebt == nil {
		// Negatives first: "nao tenho divida" also contains "tenho divida".
		switch {
		case containsAny(folded, "sem divida", "nenhuma divida", "nao tenho divida", "nao possuo divida", "nao tenho dividas"):
			no := false
			d.HasDebt = &no
		case containsAny(folded, "tenho divida", "estou com divida", "possuo divida", "com dividas"):
			yes := true
			d.HasDebt = &yes
		}
	}
}

func parseEmployment(raw string) (statex.Employment, bool) {
	folded := nlu.Fold(raw)
	switch {
	case strings.Contains(folded, "desempreg"), strings.Contains(folded, "unemployed"):
		return statex.EmploymentUnemployed, true
	case strings.Contains(folded, "autonom"), strings.Contains(folded, "informal"), strings.Contains(folded, "autonomous"):
		return statex.EmploymentAutonomous, true
	case strings.Contains(folded, "formal"), strings.Contains(folded, "clt"), strings.Contains(folded, "carteira assinada"):
		return statex.EmploymentFormal, true
	default:
		return "", false
	}
}

// parseDependents maps a count to one of "0", "1", "2", "3+".
func parseDependents(raw string) (string, bool) {
	folded := nlu.Fold(raw)
	if v, ok := wordCounts[folded]; ok {
		return v, true
	}
	switch folded {
	case "3+":
		return "3+", true
	case "nenhum", "zero":
		return "0", true
	}
	n, err := strconv.Atoi(strings.TrimSuffix(folded, "+"))
	if err != nil || n < 0 {
		return "", false
	}
	if n >= 3 {
		return "3+", true
	}
	return strconv.Itoa(n), true
}

// amountAfter returns the first amount that follows one of the keywords.
func amountAfter(folded string, keywords []string) (float64, bool) {
	for _, kw := range keywords {
		idx := strings.Index(folded, kw)
		if idx < 0 {
			continue
		}
		if v, ok := toolx.ParseNonNegative(folded[idx+len(kw):]); ok {
			return v, true
		}
	}
	return 0, false
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
