// Package payout calcula o ganho potencial de uma aposta.
//
// Regra de arredondamento: round-half-up (x.5 sobe). A odd é quantizada em
// 1/10000 antes da multiplicação, então a conta é feita em inteiros e o
// resultado é o mesmo para aposta inicial e aumentos.
package payout

import "math"

const oddsScale = 10000

// Potential retorna round-half-up(stake × odds).
// stake <= 0 ou odds <= 0 (ou não finita) retorna 0: nenhum ganho calculável.
func Potential(stake int64, odds float64) int64 {
	if stake <= 0 || !(odds > 0) || math.IsInf(odds, 1) {
		return 0
	}
	q := math.Round(odds * oddsScale)
	if q <= 0 {
		return 0
	}
	// odd ou produto fora de int64: mesma regra em float, saturando em MaxInt64
	if q >= math.MaxInt64 || stake > (math.MaxInt64-oddsScale/2)/int64(q) {
		return saturate(math.Floor(float64(stake)*odds + 0.5))
	}
	return (stake*int64(q) + oddsScale/2) / oddsScale
}

func saturate(f float64) int64 {
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}
