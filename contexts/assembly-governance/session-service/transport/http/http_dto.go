package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateMeetingRequest struct {
	Title          string `json:"title"`
	ConvocationNo  int    `json:"convocation_no,omitempty"`
	QuorumPolicyID string `json:"quorum_policy_id,omitempty"`
	VotePolicyID   string `json:"vote_policy_id,omitempty"`
}

type MeetingResponse struct {
	MeetingID      string `json:"meeting_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	ConvocationNo  int    `json:"convocation_no"`
	QuorumPolicyID string `json:"quorum_policy_id,omitempty"`
	VotePolicyID   string `json:"vote_policy_id,omitempty"`
	OpenMotionID   string `json:"open_motion_id,omitempty"`
	OpenedAt       string `json:"opened_at,omitempty"`
	ClosedAt       string `json:"closed_at,omitempty"`
}

type TransitionMeetingRequest struct {
	ToStatus string `json:"to_status"`
}

type TransitionMeetingResponse struct {
	Meeting  MeetingResponse `json:"meeting"`
	Warnings []string        `json:"warnings,omitempty"`
}

type CreateMotionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Secret      bool   `json:"secret,omitempty"`
}

type MotionResponse struct {
	MotionID       string `json:"motion_id"`
	MeetingID      string `json:"meeting_id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Position       int    `json:"position"`
	Secret         bool   `json:"secret"`
	Decision       string `json:"decision,omitempty"`
	DecisionReason string `json:"decision_reason,omitempty"`
	OpenedAt       string `json:"opened_at,omitempty"`
	ClosedAt       string `json:"closed_at,omitempty"`
}

type ReorderMotionsRequest struct {
	MotionIDs []string `json:"motion_ids"`
}

type TalliesResponse struct {
	VotesFor      int    `json:"votes_for"`
	VotesAgainst  int    `json:"votes_against"`
	VotesAbstain  int    `json:"votes_abstain"`
	WeightFor     string `json:"weight_for"`
	WeightAgainst string `json:"weight_against"`
	WeightAbstain string `json:"weight_abstain"`
}

type CloseMotionResponse struct {
	Motion          MotionResponse  `json:"motion"`
	Decision        string          `json:"decision"`
	DecisionReason  string          `json:"decision_reason"`
	Tallies         TalliesResponse `json:"tallies"`
	EligibleCount   int             `json:"eligible_count"`
	EligibleWeight  string          `json:"eligible_weight"`
	VotesCast       int             `json:"votes_cast"`
	ParticipatingNo int             `json:"participating_count"`
}

type CastBallotRequest struct {
	Value string `json:"value"`
}

type BallotResponse struct {
	MotionID      string `json:"motion_id"`
	MemberID      string `json:"member_id"`
	Value         string `json:"value"`
	Source        string `json:"source"`
	Weight        string `json:"weight"`
	Justification string `json:"justification,omitempty"`
	CastAt        string `json:"cast_at"`
	Replayed      bool   `json:"replayed"`
	WasUpdate     bool   `json:"was_update"`
}

type ManualVoteRequest struct {
	MemberID      string `json:"member_id"`
	Value         string `json:"value"`
	Justification string `json:"justification"`
}

type CancelBallotRequest struct {
	Reason string `json:"reason"`
}

type SetAttendanceRequest struct {
	Mode string `json:"mode"`
}

type AttendanceResponse struct {
	MeetingID string   `json:"meeting_id"`
	MemberID  string   `json:"member_id"`
	Mode      string   `json:"mode"`
	Warnings  []string `json:"warnings,omitempty"`
}

type BulkPresentRequest struct {
	MemberIDs []string `json:"member_ids,omitempty"`
}

type BatchResponse struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

type SetProxyRequest struct {
	GiverID    string `json:"giver_id"`
	ReceiverID string `json:"receiver_id"`
}

type ProxyResponse struct {
	MeetingID  string   `json:"meeting_id"`
	GiverID    string   `json:"giver_id"`
	ReceiverID string   `json:"receiver_id"`
	GrantedAt  string   `json:"granted_at"`
	Warnings   []string `json:"warnings,omitempty"`
}

type UnanimityRequest struct {
	Value         string `json:"value"`
	Justification string `json:"justification,omitempty"`
}

type EligibleWeightResponse struct {
	MeetingID   string `json:"meeting_id"`
	MemberCount int    `json:"member_count"`
	TotalWeight string `json:"total_weight"`
}

type CurrentMotionResponse struct {
	HasOpenMotion bool            `json:"has_open_motion"`
	Motion        *MotionResponse `json:"motion,omitempty"`
	VotesCast     int             `json:"votes_cast"`
	Tallies       TalliesResponse `json:"tallies"`
}

type MotionResultResponse struct {
	Motion    MotionResponse  `json:"motion"`
	Tallies   TalliesResponse `json:"tallies"`
	VotesCast int             `json:"votes_cast"`
	Masked    bool            `json:"masked"`
}

type MeetingSnapshotResponse struct {
	Meeting MeetingResponse  `json:"meeting"`
	Motions []MotionResponse `json:"motions"`
}
