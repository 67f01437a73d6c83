package cons

// TargetKind 可被审核/点赞/举报的目标类型
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
	TargetProject TargetKind = "project" // 没有内置实现，由接入方通过 WithTargetHandler 注册
)

func (k TargetKind) Valid() bool {
	return k == TargetPost || k == TargetComment || k == TargetProject
}

// ModerationStatus 审核状态
type ModerationStatus string

const (
	StatusActive      ModerationStatus = "active"       // 默认，正常可见
	StatusHidden      ModerationStatus = "hidden"       // 仅作者和管理员可见（带警告）
	StatusUnderReview ModerationStatus = "under_review" // 人工升级，自动流程不会进入
	StatusDeleted     ModerationStatus = "deleted"      // 终态，只用于审计
)

// 毒性阈值
const (
	ToxicityHideThreshold   = 0.8
	ToxicityRecordThreshold = 0.5
)

// 自动审核的 flag_reason 闭集
const (
	FlagToxicity         = "toxicity"
	FlagSevereToxicity   = "severe_toxicity"
	FlagIdentityAttack   = "identity_attack"
	FlagInsult           = "insult"
	FlagProfanity        = "profanity"
	FlagThreat           = "threat"
	FlagSexuallyExplicit = "sexually_explicit"
	FlagFlirtation       = "flirtation"
	FlagSpam             = "spam"
)

var flagReasons = map[string]struct{}{
	FlagToxicity: {}, FlagSevereToxicity: {}, FlagIdentityAttack: {}, FlagInsult: {},
	FlagProfanity: {}, FlagThreat: {}, FlagSexuallyExplicit: {}, FlagFlirtation: {}, FlagSpam: {},
}

// NormalizeFlagReason 把分类器属性名收敛到闭集，未知属性归为 toxicity
func NormalizeFlagReason(attr string) string {
	if _, ok := flagReasons[attr]; ok {
		return attr
	}
	return FlagToxicity
}

// 举报原因闭集
const (
	ReportSpam           = "spam"
	ReportHarassment     = "harassment"
	ReportHateSpeech     = "hate_speech"
	ReportViolence       = "violence"
	ReportSexualContent  = "sexual_content"
	ReportMisinformation = "misinformation"
	ReportOther          = "other"
)

// ReportDetailsMaxLen 举报补充说明最大字符数
const ReportDetailsMaxLen = 500

// ValidReportReason 举报原因是否合法
func ValidReportReason(reason string) bool {
	switch reason {
	case ReportSpam, ReportHarassment, ReportHateSpeech, ReportViolence,
		ReportSexualContent, ReportMisinformation, ReportOther:
		return true
	}
	return false
}

// 角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
