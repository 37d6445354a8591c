package intent

// Seed is one chip intent with its patterns, used to populate an empty
// chip table.
type Seed struct {
	Intent   string
	Reply    string
	Patterns []string
}

// DefaultSeeds is the stock rule set, in routing order.
var DefaultSeeds = []Seed{
	{
		Intent:   "community_guidelines",
		Reply:    "커뮤니티 규정은 공지사항에서 확인하실 수 있어요. 특정 사례가 있다면 링크와 함께 알려주세요.",
		Patterns: []string{`규정|가이드|가이드라인|커뮤니티\s*규정`},
	},
	{
		Intent:   "suggestion",
		Reply:    "좋은 의견 감사합니다! 제안하실 내용을 구체적으로 남겨주시면 제품팀에 전달하겠습니다.",
		Patterns: []string{`제안|건의|개선|피드백|의견`},
	},
	{
		Intent:   "report_member",
		Reply:    "신고하고자 하는 회원/게시글 링크를 알려주세요. 확인 후 조치하겠습니다.",
		Patterns: []string{`신고|허위|스팸|욕설|비방|규정\s*위반|부적절`},
	},
	{
		Intent:   "usage_inquiry",
		Reply:    "이용 중 불편하신 점이나 궁금한 점을 자세히 적어주세요. 도와드릴게요.",
		Patterns: []string{`문의|사용법|이용|어떻게|방법|안내`},
	},
	{
		Intent:   "delete_request",
		Reply:    "삭제 요청 대상(게시글/댓글) 링크와 사유를 남겨주세요. 정책 검토 후 처리됩니다.",
		Patterns: []string{`삭제\s*요청|삭제해줘|내\s*글\s*삭제|댓글\s*삭제`},
	},
	{
		Intent:   "bug_report",
		Reply:    "버그 제보 감사합니다. 재현 경로/화면/브라우저 정보를 주시면 빠르게 확인하겠습니다.",
		Patterns: []string{`버그|오류|에러|깨짐|안됨|문제`},
	},
}
