package repoargs

type CreateReferral struct {
	ID             string
	Code           string
	OwnerAccountID string
}

type CreateReferralReward struct {
	ID                string
	ReferralID        string
	ReferrerAccountID string
	ReferredAccountID string
	ReferrerCredits   int64
	SignupCredits     int64
}

// ReferralRewardAggregation агрегат по журналу реферальных начислений одного реферера.
type ReferralRewardAggregation struct {
	Count   int64
	Credits int64
}
