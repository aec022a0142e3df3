package orchestrator

import (
	"fmt"
	"strings"

	"github.com/xhad/tradeqa/internal/models"
)

const (
	// TimeoutMessage answers a fresh question that ran out of time.
	TimeoutMessage = "응답 시간이 초과되었습니다. 잠시 후 질문을 다시 입력해 주세요."
	// CouldNotGenerateMessage answers when no text could be generated.
	CouldNotGenerateMessage = "답변을 생성할 수 없습니다. 잠시 후 다시 시도해 주세요."
	// PartialDisclaimer prefixes the degraded quick summary.
	PartialDisclaimer = "※ 시간 제한으로 인해 일부 자료만을 바탕으로 작성된 부분 답변입니다. 더 자세한 내용은 질문을 다시 입력해 주세요."
)

func quickPrompt(history, question string) string {
	return fmt.Sprintf(`
당신은 덤핑 및 무역 관련 전문가입니다. 다음 질문에 핵심만 간결하게 답변해주세요.
확실하지 않은 내용은 추측하지 말고 "일반 정보:" 문구와 함께 일반적으로 알려진 내용만 제공해주세요.

이전 대화:
%s

질문: %s
`, history, question)
}

func synthesisPrompt(partials []models.PartialResponse, history, question string) string {
	sections := make([]string, len(partials))
	for i, p := range partials {
		sections[i] = fmt.Sprintf("=== %s 관련 정보 ===\n%s", p.DocumentName, p.Text)
	}

	return fmt.Sprintf(`
당신은 덤핑 및 무역 분야의 전문가이자 기술 전문가입니다. 여러 자료의 정보를 통합하여 포괄적인 답변을 제공합니다.

%s

이전 대화:
%s

질문: %s

# 응답 지침
1. 여러 자료의 정보를 통합하여 다음 구조로 답변을 작성하세요:
   a) 일반적인 설명 (제품/기술/개념에 대한 기본 설명)
   b) 법령/규정 관련 정보 (있는 경우)
   c) 기술적/산업적 특징
   d) 시장/무역 관련 정보
   e) 참고할만한 추가 정보

2. 자료에서 찾은 정보를 우선하고 출처(법령명, 조항 등)를 명시하세요. 일반적인 정보는 "일반 정보:" 문구와 함께 제공하세요.
3. 자료로 뒷받침되지 않는 주장은 "확인 필요:" 문구로 표시하세요.
4. 답변은 이해하기 쉽게 두괄식으로 작성하고, 필요한 경우 항목별로 구분하세요.
`, strings.Join(sections, "\n\n"), history, question)
}
