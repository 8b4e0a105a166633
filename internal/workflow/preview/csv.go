package preview

import (
	"encoding/csv"
	"io"
	"strconv"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
)

var csvHeader = []string{"School ID", "School Name", "Participants", "Reward Amount (G$)", "Wallet Address", "Wallet Ready"}

// WriteCSV renders the already fetched preview: one header record and one record per row.
// Fields are kept verbatim, so a name holding a newline is quoted across physical lines.
// No request is made.
func (p *Previewer) WriteCSV(w io.Writer) error {
	pv := p.Current()
	if pv == nil {
		return errno.ErrNotFound.WithMessage("No preview fetched yet")
	}
	return WriteCSV(w, pv)
}

// WriteCSV renders pv.
func WriteCSV(w io.Writer, pv *model.DistributionPreview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range pv.Distributions {
		rec := []string{
			strconv.FormatInt(d.SchoolID, 10),
			d.SchoolName,
			strconv.Itoa(d.Participants),
			d.RewardAmount.String(),
			d.WalletAddress,
			strconv.FormatBool(d.WalletReady),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
