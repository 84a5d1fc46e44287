package sqlstore

import "github.com/Chriskfigures777/give-app-sub003/core"

var (
	_ core.DonationStore             = (*DonationStore)(nil)
	_ core.AggregateStore            = (*AggregateStore)(nil)
	_ core.SubscriptionStore         = (*SubscriptionStore)(nil)
	_ core.SplitMarkerStore          = (*SplitMarkerStore)(nil)
	_ core.OrganizationStore         = (*OrganizationStore)(nil)
	_ core.CampaignStore             = (*CampaignStore)(nil)
	_ core.FundRequestStore          = (*FundRequestStore)(nil)
	_ core.EndowmentFundStore        = (*EndowmentFundStore)(nil)
	_ core.PayoutStore               = (*PayoutStore)(nil)
	_ core.NotificationDispatchStore = (*NotificationDispatchStore)(nil)
)
