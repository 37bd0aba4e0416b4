package game

import (
	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/obslog"
)

// TakeLoan grants a seat its single outstanding loan. Repayment is
// 1.5x the principal, auto-debited after a fixed number of laps past
// the tile the loan was taken on.
func (e *Engine) TakeLoan(seat, amount int) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	if amount <= 0 {
		return ErrBadPayload
	}
	if _, has := e.st.Loans[seat]; has {
		obslog.L().Debug("loan_rejected_outstanding", zap.Int("seat", seat))
		return nil
	}
	e.st.Loans[seat] = &Loan{
		Principal: amount,
		Due:       amount + amount/2,
		LapsLeft:  e.rules.LoanLaps,
		MarkTile:  e.st.Positions[seat],
	}
	e.credit(seat, amount)
	e.hist("history.loan_taken", map[string]any{"Name": e.name(seat), "Amount": amount})
	return nil
}

// RepayLoan settles the full repayment early.
func (e *Engine) RepayLoan(seat int) error {
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	loan, has := e.st.Loans[seat]
	if !has {
		return nil
	}
	e.repay(seat, loan)
	return nil
}

func (e *Engine) repay(seat int, loan *Loan) {
	e.debit(seat, loan.Due)
	delete(e.st.Loans, seat)
	e.hist("history.loan_repaid", map[string]any{"Name": e.name(seat), "Amount": loan.Due})
}

// checkLoanLap counts a lap when a move crosses the loan's mark tile
// and auto-debits the repayment when the laps run out. A move of
// length steps from old crosses the mark iff the mark lies in
// (old, old+steps] on the circular track.
func (e *Engine) checkLoanLap(seat, old, steps int) {
	loan, has := e.st.Loans[seat]
	if !has {
		return
	}
	offset := (loan.MarkTile - old + e.rules.TrackLength) % e.rules.TrackLength
	if offset == 0 {
		offset = e.rules.TrackLength
	}
	if offset > steps {
		return
	}
	loan.LapsLeft--
	if loan.LapsLeft <= 0 {
		e.repay(seat, loan)
	}
}

// clearDebt forgives part or all of a seat's loan; fraction 1 clears
// it entirely.
func (e *Engine) clearDebt(seat int, fraction float64) {
	loan, has := e.st.Loans[seat]
	if !has {
		return
	}
	if fraction >= 1 {
		delete(e.st.Loans, seat)
		return
	}
	loan.Due -= int(float64(loan.Due) * fraction)
	if loan.Due <= 0 {
		delete(e.st.Loans, seat)
	}
}
