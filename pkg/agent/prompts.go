package agent

import (
	"fmt"
	"strings"
)

func expertPrompt(context, rateFacts, history, question string) string {
	var facts string
	if rateFacts != "" {
		facts = fmt.Sprintf("\n아래는 덤핑방지관세율 조회 결과입니다:\n%s\n", rateFacts)
	}

	return fmt.Sprintf(`
당신은 덤핑 및 무역 관련 전문가입니다. 주어진 자료를 기반으로 답변하되, 일반적으로 알려진 정보도 함께 제공해 주세요.

아래는 질문과 관련된 법령 및 자료 내용입니다:
%s
%s
이전 대화:
%s

질문: %s

# 응답 지침
1. 제공된 자료에서 찾은 정보와 일반적으로 알려진 정보를 모두 포함하여 답변해주세요.
2. 자료에서 찾은 정보는 출처(법령명, 조항 등)를 명확히 인용해주세요.
3. 자료에 없는 내용이더라도 일반적으로 알려진 사실이나 기술적 정보는 "일반 정보:" 문구와 함께 제공해주세요.
4. 답변은 다음 순서로 구성해주세요:
   - 일반적인 설명
   - 관련 법령 정보 (있는 경우)
   - 기술적/산업적 정보
   - 시장/무역 관련 정보
   - 참고할만한 추가 정보
`, context, facts, history, question)
}

func chunkSummaryPrompt(document, chunk string) string {
	return fmt.Sprintf(`다음은 「%s」의 일부입니다. 조항 번호와 핵심 내용을 유지하면서 간결하게 요약해주세요.

%s`, document, chunk)
}

func combineSummaryPrompt(document string, summaries []string, question string) string {
	var b strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&b, "[부분 %d]\n%s\n\n", i+1, s)
	}

	return fmt.Sprintf(`다음은 「%s」 각 부분의 요약입니다. 이를 통합하여 하나의 완결된 요약을 작성해주세요.
중복은 제거하고, 문서의 구성 순서를 따르며, 출처(조항 등)를 유지해주세요.

%s질문: %s`, document, b.String(), question)
}
