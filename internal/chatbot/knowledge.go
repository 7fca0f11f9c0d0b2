package chatbot

// Drug is a knowledge base entry for a commonly sold medicine.
type Drug struct {
	GenericName  string   `json:"generic_name"`
	BrandNames   []string `json:"brand_names"`
	Uses         []string `json:"uses"`
	AdultDose    string   `json:"adult_dosage"`
	ChildDose    string   `json:"child_dosage"`
	SideEffects  []string `json:"side_effects"`
	Warnings     []string `json:"warnings"`
	Interactions []string `json:"interactions"`
}

var knowledge = map[string]Drug{
	"paracetamol": {
		GenericName:  "Acetaminophen",
		BrandNames:   []string{"Tylenol", "Panadol", "Calpol", "Crocin", "Dolo"},
		Uses:         []string{"Pain relief", "Fever reduction"},
		AdultDose:    "500-1000mg every 4-6 hours, max 4000mg/day",
		ChildDose:    "10-15mg/kg every 4-6 hours",
		SideEffects:  []string{"Nausea", "Liver problems (high doses)", "Allergic reactions"},
		Warnings:     []string{"Do not exceed recommended dose", "Avoid alcohol", "Consult doctor if pregnant"},
		Interactions: []string{"Blood thinners", "Alcohol", "Other pain medications"},
	},
	"ibuprofen": {
		GenericName:  "Ibuprofen",
		BrandNames:   []string{"Advil", "Motrin", "Brufen"},
		Uses:         []string{"Pain relief", "Inflammation reduction", "Fever"},
		AdultDose:    "200-400mg every 4-6 hours, max 1200mg/day",
		ChildDose:    "5-10mg/kg every 6-8 hours",
		SideEffects:  []string{"Stomach upset", "Dizziness", "Increased bleeding risk"},
		Warnings:     []string{"Take with food", "Avoid if stomach ulcers", "Consult doctor if pregnant"},
		Interactions: []string{"Blood thinners", "Aspirin", "ACE inhibitors"},
	},
	"amoxicillin": {
		GenericName:  "Amoxicillin",
		BrandNames:   []string{"Amoxil", "Trimox"},
		Uses:         []string{"Bacterial infections", "Respiratory infections", "Ear infections"},
		AdultDose:    "250-500mg every 8 hours",
		ChildDose:    "20-40mg/kg/day divided every 8 hours",
		SideEffects:  []string{"Diarrhea", "Nausea", "Rash", "Yeast infection"},
		Warnings:     []string{"Complete full course", "Avoid if allergic to penicillin"},
		Interactions: []string{"Birth control pills", "Blood thinners", "Probenecid"},
	},
	"cetirizine": {
		GenericName:  "Cetirizine",
		BrandNames:   []string{"Zyrtec", "Cetzine", "Alerid"},
		Uses:         []string{"Allergic rhinitis", "Hives", "Itching"},
		AdultDose:    "10mg once daily",
		ChildDose:    "2.5-5mg once daily (ages 2-6)",
		SideEffects:  []string{"Drowsiness", "Dry mouth", "Headache"},
		Warnings:     []string{"May cause drowsiness", "Avoid alcohol", "Reduce dose in kidney disease"},
		Interactions: []string{"Alcohol", "Sedatives"},
	},
	"omeprazole": {
		GenericName:  "Omeprazole",
		BrandNames:   []string{"Prilosec", "Omez"},
		Uses:         []string{"Acid reflux", "Stomach ulcers", "Heartburn"},
		AdultDose:    "20-40mg once daily before a meal",
		ChildDose:    "Consult a paediatrician",
		SideEffects:  []string{"Headache", "Abdominal pain", "Nausea"},
		Warnings:     []string{"Long-term use may lower magnesium and B12", "Do not crush capsules"},
		Interactions: []string{"Clopidogrel", "Methotrexate", "Warfarin"},
	},
}
