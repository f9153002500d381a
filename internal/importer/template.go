package importer

// Template kinds accepted by TemplateHeaders.
const (
	KindResale  = "resale"
	KindProject = "project"
)

var resaleTemplate = []string{
	"Agent",
	"المنطقة",
	"نوع",
	"السعر",
	"العملة",
	"الكود",
	"الدور",
	"المساحة",
	"مصعد",
	"تشطيب",
	"عدادات",
	"غ",
	"ر",
	"ح",
	"مطبخ",
	"فيو",
	"مباني",
	"في صور",
	"مدخل العمارة",
	"العمولة",
	"تاريخ",
	"المطلوب",
	"اسم المالك / س",
	"الرقم",
	"اعلان",
	"العنوان",
	"مكان للنوت",
}

var projectTemplate = []string{
	"project_title",
	"project_code",
	"project_city",
	"project_area",
	"type",
	"price",
	"currency",
	"unit_code",
	"bedrooms",
	"bathrooms",
	"size_m2",
	"area",
	"city",
	"address",
	"notes",
}

// TemplateHeaders returns the header row of a sample upload file. Resale
// templates use the Arabic column names the sales team works with; project
// templates use canonical names. Unknown kinds get the resale template.
func TemplateHeaders(kind string) []string {
	if kind == KindProject {
		return append([]string(nil), projectTemplate...)
	}
	return append([]string(nil), resaleTemplate...)
}
