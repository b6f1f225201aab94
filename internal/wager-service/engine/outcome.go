package engine

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// PayoutMultiplier é a política de prêmio: vitória paga 2x o stake
const PayoutMultiplier = 2

var payoutFactor = decimal.NewFromInt(PayoutMultiplier)

// RandSource é a fonte de aleatoriedade injetada no evaluator.
// *rand.Rand satisfaz; testes injetam sequências fixas
type RandSource interface {
	Float64() float64
}

// OutcomeEvaluator decide vitória/derrota e o payout de um stake.
// Função pura fora da fonte aleatória: sem estado compartilhado, sem efeito colateral
type OutcomeEvaluator struct {
	rnd RandSource
}

func NewOutcomeEvaluator(rnd RandSource) *OutcomeEvaluator {
	return &OutcomeEvaluator{rnd: rnd}
}

// Evaluate sorteia o resultado: win quando a amostra uniforme cai abaixo
// de probability. Aritmética monetária sempre em decimal exato
func (o *OutcomeEvaluator) Evaluate(stake decimal.Decimal, probability float64) (win bool, payout decimal.Decimal) {
	win = o.rnd.Float64() < probability
	if !win {
		return false, decimal.Zero
	}
	return true, stake.Mul(payoutFactor)
}

// SystemRand devolve a fonte padrão, segura para uso concorrente
func SystemRand() RandSource { return systemRand{} }

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }
