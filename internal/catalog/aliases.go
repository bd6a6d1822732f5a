package catalog

// Alias maps a catalog code to the phrases patients use for it. Phrases are
// lowercase and matched by substring containment, so longer and more
// specific phrases come first.
type Alias struct {
	Code        string
	DisplayName string
	Phrases     []string
}

// TestAliases is ordered: the first alias with a matching phrase wins.
var TestAliases = []Alias{
	{Code: "HEALTHPKG", DisplayName: "Full Body Health Package", Phrases: []string{"full body", "health package", "health checkup", "health check-up", "complete checkup", "healthpkg"}},
	{Code: "DIABPKG", DisplayName: "Diabetes Package", Phrases: []string{"diabetes package", "diabetes", "diabetic", "blood sugar", "sugar test", "hba1c", "diabpkg"}},
	{Code: "CBC", DisplayName: "Complete Blood Count", Phrases: []string{"complete blood count", "cbc", "blood count", "hemogram", "haemogram"}},
	{Code: "LIPID", DisplayName: "Lipid Profile", Phrases: []string{"lipid", "cholesterol", "triglyceride"}},
	{Code: "THYROID", DisplayName: "Thyroid Profile", Phrases: []string{"thyroid", "tsh", "t3 t4"}},
	{Code: "LFT", DisplayName: "Liver Function Test", Phrases: []string{"liver function", "lft", "liver"}},
	{Code: "KFT", DisplayName: "Kidney Function Test", Phrases: []string{"kidney function", "kft", "renal function", "kidney"}},
	{Code: "URINE", DisplayName: "Urine Routine Examination", Phrases: []string{"urine", "urinalysis"}},
	{Code: "VITD", DisplayName: "Vitamin D", Phrases: []string{"vitamin d", "vit d", "vitd", "vitamin-d"}},
	{Code: "IRON", DisplayName: "Iron Studies", Phrases: []string{"iron", "ferritin"}},
}

// AliasFor returns the alias entry for a catalog code.
func AliasFor(code string) (Alias, bool) {
	for _, a := range TestAliases {
		if a.Code == code {
			return a, true
		}
	}
	return Alias{}, false
}
