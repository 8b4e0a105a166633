package monitor

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
)

var csvHeader = []string{"ID", "School", "Wallet Address", "Amount (G$)", "Status", "Transaction Hash", "Block", "Gas Used", "Retries", "Error", "Timestamp", "Explorer URL"}

// WriteCSV serializes the last fetched transactions. No request is made.
func (m *Monitor) WriteCSV(w io.Writer) error {
	st := m.Status()
	if st == nil {
		return errno.ErrNotFound.WithMessage("No status fetched yet")
	}
	return WriteCSV(w, st.Transactions)
}

// WriteCSV renders txs with a header line.
func WriteCSV(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		ts := ""
		if tx.Timestamp != nil {
			ts = tx.Timestamp.UTC().Format(time.RFC3339)
		}
		rec := []string{
			strconv.FormatInt(tx.ID, 10),
			tx.SchoolName,
			tx.WalletAddress,
			tx.Amount.String(),
			string(tx.Status),
			tx.TransactionHash,
			strconv.FormatUint(tx.BlockNumber, 10),
			strconv.FormatUint(tx.GasUsed, 10),
			strconv.Itoa(tx.RetryCount),
			tx.ErrorMessage,
			ts,
			tx.ExplorerURL,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
