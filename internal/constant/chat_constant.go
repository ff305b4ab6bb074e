package constant

// Intent labels produced by the classifier.
const (
	IntentMedical = "medical"
	IntentGeneral = "general"
)

// Chat roles in persisted history.
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// Canned reply used when the general-answer LLM call itself fails.
const GeneralFallbackReply = "Tôi là trợ lý AI chuyên về y học và dược học. " +
	"Câu hỏi của bạn có vẻ không thuộc lĩnh vực chuyên môn của tôi. " +
	"Bạn có thể hỏi tôi về công dụng, liều dùng, tác dụng phụ của thuốc, " +
	"tương tác thuốc-gene hoặc mối liên hệ giữa thuốc và bệnh."

// Reply used when no evidence could be retrieved at all.
const NoEvidenceReply = "Xin lỗi, hiện tại tôi không thể tra cứu đủ thông tin " +
	"đáng tin cậy để trả lời câu hỏi này. Vui lòng thử lại sau hoặc tham khảo " +
	"ý kiến bác sĩ, dược sĩ."
