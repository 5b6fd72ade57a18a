package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultSourcePrefix = "Transfer to "
	defaultDestPrefix   = "Transfer from "
)

// TransferRequest describes a money move between two accounts.
// Amount is the positive magnitude moved.
type TransferRequest struct {
	Amount      Money     `json:"amount"`
	FromAccount int64     `json:"fromAccountId"`
	ToAccount   int64     `json:"toAccountId"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
}

func (r TransferRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.FromAccount <= 0 || r.ToAccount <= 0 {
		return ErrInvalidReference
	}
	if r.FromAccount == r.ToAccount {
		return ErrSameAccount
	}
	if r.Date.IsZero() {
		return ErrZeroDate
	}
	if len(r.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Legs builds the two rows of the transfer: the source leg debits
// FromAccount, the destination leg credits ToAccount. Without a description
// each leg names the other account.
func (r TransferRequest) Legs(categoryID int64, transferID, fromName, toName string) (Transaction, Transaction) {
	srcDesc, dstDesc := r.Description, r.Description
	if srcDesc == "" {
		srcDesc = defaultSourcePrefix + toName
		dstDesc = defaultDestPrefix + fromName
	}
	src := Transaction{
		Date:        r.Date,
		AccountID:   r.FromAccount,
		CategoryID:  categoryID,
		Amount:      -r.Amount,
		Description: srcDesc,
		TransferID:  transferID,
	}
	dst := Transaction{
		Date:        r.Date,
		AccountID:   r.ToAccount,
		CategoryID:  categoryID,
		Amount:      r.Amount,
		Description: dstDesc,
		TransferID:  transferID,
	}
	return src, dst
}

// Transfer is a transfer rebuilt from its stored legs.
type Transfer struct {
	ID          string    `json:"id"`
	Amount      Money     `json:"amount"`
	FromAccount int64     `json:"fromAccountId"`
	ToAccount   int64     `json:"toAccountId"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	SourceLeg   int64     `json:"sourceLegId"`
	DestLeg     int64     `json:"destLegId"`
}

// Request turns the transfer back into the request that would recreate it.
func (t Transfer) Request() TransferRequest {
	return TransferRequest{
		Amount:      t.Amount,
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		Date:        t.Date,
		Description: t.Description,
	}
}

// requestedDescription returns the description the transfer was created
// with, or "" when the legs carry the generated per-leg defaults. A given
// description is stored on both legs unchanged.
func requestedDescription(src, dst Transaction) string {
	if src.Description != dst.Description &&
		strings.HasPrefix(src.Description, defaultSourcePrefix) &&
		strings.HasPrefix(dst.Description, defaultDestPrefix) {
		return ""
	}
	return src.Description
}

// TransferFromLegs pairs the rows sharing one transfer id. It fails with
// ErrTransferIntegrity unless there are exactly two legs of opposite sign,
// equal magnitude, distinct accounts and the same transfer id.
func TransferFromLegs(legs []Transaction) (Transfer, error) {
	if len(legs) == 0 {
		return Transfer{}, ErrTransferNotFound
	}
	if len(legs) != 2 {
		return Transfer{}, fmt.Errorf("%w: %d legs", ErrTransferIntegrity, len(legs))
	}
	src, dst := legs[0], legs[1]
	if src.Amount > 0 {
		src, dst = dst, src
	}
	switch {
	case src.TransferID == "" || src.TransferID != dst.TransferID:
		return Transfer{}, fmt.Errorf("%w: transfer id mismatch", ErrTransferIntegrity)
	case src.Amount >= 0 || dst.Amount != -src.Amount:
		return Transfer{}, fmt.Errorf("%w: amounts %d and %d", ErrTransferIntegrity, src.Amount, dst.Amount)
	case src.AccountID == dst.AccountID:
		return Transfer{}, fmt.Errorf("%w: both legs on account %d", ErrTransferIntegrity, src.AccountID)
	}
	return Transfer{
		ID:          src.TransferID,
		Amount:      dst.Amount,
		FromAccount: src.AccountID,
		ToAccount:   dst.AccountID,
		Date:        src.Date,
		Description: requestedDescription(src, dst),
		SourceLeg:   src.ID,
		DestLeg:     dst.ID,
	}, nil
}
