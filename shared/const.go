package shared

const (
	UserID = "user_id"

	LearnerIDHeader = "X-Learner-ID"
	LocalLearnerID  = "local"

	EndpointXPAward = "xp_award"
)
