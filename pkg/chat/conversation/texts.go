package conversation

import "support-chat-be/pkg/chat/form"

const (
	GreetingText        = "안녕하세요, 스포츠 고객지원팀입니다. 도와드릴 일이 있나요?"
	FollowUpText        = "도움이 되셨나요?"
	AckText             = "접수되었습니다. 빠르게 확인 후 도와드릴게요."
	ClosingText         = "상담을 종료했습니다. 언제든지 다시 문의해 주세요."
	MoreHelpText        = "어떤 도움이 필요하신가요?"
	AgentFormPrompt     = "상담원 연결을 위한 정보를 입력해주세요."
	WaitingText         = "상담원 연결 요청이 접수되었습니다. 관리자가 확인 후 연결해드리겠습니다. 잠시만 기다려주세요..."
	ConnectedText       = "상담원이 연결되었습니다! 안녕하세요, 무엇을 도와드릴까요? 😊"
	FailureText         = "죄송합니다. 현재 상담원이 모두 바쁜 상태입니다. 나중에 다시 시도해주세요."
	AgentEndedText      = "상담원이 상담을 종료했습니다. 더 필요한 도움이 있으면 아래 메뉴를 이용해 주세요."
	PollWarningText     = "상담원 연결 상태를 확인하지 못하고 있어요. 계속 연결을 시도하는 중입니다."
	DefaultFormPrompt   = "필요한 정보를 입력해주세요."
	GuidelinesReplyText = "커뮤니티 규정은 공지사항에서 확인하실 수 있어요. 특정 사례가 있다면 링크와 함께 알려주세요."
)

// formPrompts introduce the form a quick-menu click opens.
var formPrompts = map[string]string{
	form.IntentSuggestion:    "제안사항을 작성해주세요.",
	form.IntentReportMember:  "신고 내용을 작성해주세요.",
	form.IntentUsageInquiry:  "이용 문의 내용을 작성해주세요.",
	form.IntentDeleteRequest: "삭제 요청 내용을 작성해주세요.",
	form.IntentBugReport:     "버그 내용을 자세히 알려주세요.",
	form.IntentAgentConnect:  AgentFormPrompt,
}

func formPrompt(intent string) string {
	if p, ok := formPrompts[intent]; ok {
		return p
	}
	return DefaultFormPrompt
}

// quickMenuLabels are the chip captions, stored as the user's turn when a
// chip is clicked.
var quickMenuLabels = map[string]string{
	form.IntentCommunityGuidelines: "커뮤니티 규정 문의",
	form.IntentSuggestion:          "의견 제안하기",
	form.IntentReportMember:        "회원 신고하기",
	form.IntentUsageInquiry:        "커뮤니티 이용 문의",
	form.IntentDeleteRequest:       "게시글/댓글 삭제 요청",
	form.IntentBugReport:           "버그 제보",
	form.IntentAgentConnect:        "🧑‍💼 상담원과 대화",
}

// QuickMenuLabel returns the caption of a quick-menu chip.
func QuickMenuLabel(intent string) (string, bool) {
	l, ok := quickMenuLabels[intent]
	return l, ok
}
