package status

import (
	"context"
	"fmt"

	"github.com/periop/statusboard/internal/platform/db"
)

const defaultColor = "#4CAF50"

// DefaultCatalog is the perioperative stage list provisioned by "seed statuses".
func DefaultCatalog() []*Definition {
	return []*Definition{
		{Status: "Checked In", Message: "In the facility awaiting their procedure.", Color: defaultColor, OrderIndex: 0},
		{Status: "Pre-Procedure", Message: "Undergoing surgical preparation.", Color: defaultColor, OrderIndex: 1},
		{Status: "In-progress", Message: "Surgical procedure is underway.", Color: defaultColor, OrderIndex: 2},
		{Status: "Closing", Message: "Surgery completed. The patient is being prepared for recovery.", Color: defaultColor, OrderIndex: 3},
		{Status: "Recovery", Message: "Patient transferred to post-surgery recovery room.", Color: defaultColor, OrderIndex: 4},
		{Status: "Complete", Message: "Recovery completed. Patient awaiting dismissal", Color: defaultColor, OrderIndex: 5},
		{Status: "Dismissal", Message: "Transferred to a hospital room for an overnight stay or for outpatient procedures, the patient has left the hospital.", Color: defaultColor, OrderIndex: 6},
	}
}

// Seed inserts defs when the catalog is empty. It returns the number of rows
// inserted, which is zero when the catalog was already provisioned. The count
// and the inserts share one transaction, so a failed seed leaves the catalog
// empty and a rerun starts over.
func Seed(ctx context.Context, tx db.Transactor, repo Repository, defs []*Definition) (int, error) {
	inserted := 0
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		n, err := repo.Count(ctx)
		if err != nil {
			return fmt.Errorf("count statuses: %w", err)
		}
		if n > 0 {
			return nil
		}
		if err := repo.InsertAll(ctx, defs); err != nil {
			return err
		}
		inserted = len(defs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
