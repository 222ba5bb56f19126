// Package topic maps display labels of medical topics to the canonical keys the KG endpoint expects.
package topic

import (
	"fmt"
	"regexp"
	"strings"

	"medqa-workers/internal/models"
)

const copdKey = "Chronic obstructive pulmonary disease"

// A parenthesised Latin token, with ASCII or full-width parentheses.
var tokenPattern = regexp.MustCompile(`[（(]([A-Za-z0-9'\s/-]+)[)）]`)

var keyByLabel = map[string]string{
	"氣喘":    "Asthma",
	"糖尿病":   "Diabetes",
	"心臟病":   "Heart disease",
	"高血壓":   "Hypertension",
	"流行性感冒": "Influenza",
	"結核病":   "Tuberculosis",
	"肝炎":    "Hepatitis",
	"愛滋病/人類免疫缺乏病毒感染": "HIV/AIDS",
	"COVID-19":      "COVID-19",
	"瘧疾":            "Malaria",
	"肥胖症":           "Obesity",
	"甲狀腺疾病":         "Thyroid disorders",
	"阿茲海默症":         "Alzheimer's disease",
	"帕金森氏症":         "Parkinson's disease",
	"偏頭痛":           "Migraine",
	"癲癇":            "Epilepsy",
	"癌症":            "Cancer",
	"皮膚癌":           "Skin cancer",
	"乳癌":            "Breast cancer",
	"子宮頸癌":          "Cervical cancer",
	"白血病":           "Leukemia",
	"過敏":            "Allergies",
	"貧血":            "Anemia",
	"骨質疏鬆症":         "Osteoporosis",
	"關節炎":           "Arthritis",
	"憂鬱症":           "Depression",
	"焦慮症":           "Anxiety disorders",
	"胃食道逆流":         "GERD",
	"腸躁症":           "Irritable bowel syndrome",
	"乳糜瀉":           "Celiac disease",
	"慢性腎臟病":         "Chronic kidney disease",
	"慢性阻塞性肺病（COPD）": copdKey,
	"肺炎":            "Pneumonia",
	"睡眠呼吸中止症":       "Sleep apnea",
	"腦中風":           "Stroke",
}

// Resolve returns the canonical key for label. ok is false for unknown labels.
func Resolve(label string) (string, bool) {
	if m := tokenPattern.FindStringSubmatch(label); m != nil {
		token := strings.TrimSpace(m[1])
		if strings.EqualFold(token, "copd") {
			return copdKey, true
		}
		if token != "" {
			return token, true
		}
	}
	key, ok := keyByLabel[label]
	return key, ok
}

// Topic is one selectable suggestion.
type Topic struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

type Category struct {
	Name   string  `json:"name"`
	Topics []Topic `json:"topics"`
}

var categories = []struct {
	name   string
	labels []string
}{
	{"呼吸系統", []string{"氣喘", "慢性阻塞性肺病（COPD）", "肺炎", "睡眠呼吸中止症"}},
	{"感染性疾病", []string{"流行性感冒", "結核病", "肝炎", "愛滋病/人類免疫缺乏病毒感染", "COVID-19", "瘧疾"}},
	{"代謝與內分泌", []string{"糖尿病", "肥胖症", "甲狀腺疾病"}},
	{"心血管與腦血管疾病", []string{"心臟病", "高血壓", "腦中風"}},
	{"神經系統疾病", []string{"阿茲海默症", "帕金森氏症", "偏頭痛", "癲癇"}},
	{"腫瘤學（癌症）", []string{"癌症", "皮膚癌", "乳癌", "子宮頸癌", "白血病"}},
	{"免疫、血液與過敏", []string{"過敏", "貧血"}},
	{"骨骼與肌肉疾病", []string{"骨質疏鬆症", "關節炎"}},
	{"身心醫學", []string{"憂鬱症", "焦慮症"}},
	{"消化系統疾病", []string{"胃食道逆流", "腸躁症", "乳糜瀉"}},
	{"泌尿與腎臟疾病", []string{"慢性腎臟病"}},
}

// Topics returns the suggestion catalogue in display order with resolved keys.
func Topics() []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		topics := make([]Topic, 0, len(c.labels))
		for _, label := range c.labels {
			key, _ := Resolve(label)
			topics = append(topics, Topic{Label: label, Key: key})
		}
		out = append(out, Category{Name: c.name, Topics: topics})
	}
	return out
}

// ComposeQuestion turns the entered text into the submitted question. Facet templates
// apply only when a topic was picked; otherwise the trimmed text is sent as typed.
func ComposeQuestion(text string, facet models.Facet, topicKey string) string {
	text = strings.TrimSpace(text)
	if strings.TrimSpace(topicKey) == "" {
		return text
	}
	switch facet {
	case models.FacetDefinition:
		return fmt.Sprintf("什麼是%s？", text)
	case models.FacetSymptoms:
		return fmt.Sprintf("%s有哪些症狀？", text)
	case models.FacetTreatments:
		return fmt.Sprintf("%s要怎麼治療？", text)
	default:
		return text
	}
}
