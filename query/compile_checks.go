package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

var (
	_ gocmd.Querier[GetDonationMessage, DonationView]         = (*GetDonationQuery)(nil)
	_ gocmd.Querier[GetCampaignMessage, core.Campaign]        = (*GetCampaignQuery)(nil)
	_ gocmd.Querier[ListUnreconciledMessage, []core.Donation] = (*ListUnreconciledQuery)(nil)
)
