package models

// SampleContract returns the built-in mutual NDA used for demos and as the
// default clause list for risk scoring. Each call returns a fresh copy.
func SampleContract() Contract {
	return Contract{
		Title: "Mutual Non-Disclosure Agreement",
		Clauses: []Clause{
			{
				ID:    "clause-1",
				Title: "Definition of Confidential Information",
				Text: "For the purposes of this Agreement, 'Confidential Information' shall include all information or material that has or could have commercial value or other utility in the business in which Disclosing Party is engaged. " +
					"This includes, but is not limited to, trade secrets, financial information, customer lists, and business strategies. " +
					"If Confidential Information is in written form, the Disclosing Party shall label or stamp the materials with the word 'Confidential' or some similar warning. " +
					"If Confidential Information is transmitted orally, the Disclosing Party shall promptly provide a writing indicating that such oral communication constituted Confidential Information.",
				Entities: []Entity{
					{Name: "Disclosing Party", Type: "Party"},
					{Name: "Confidential Information", Type: "Legal Term"},
				},
			},
			{
				ID:    "clause-2",
				Title: "Exclusions from Confidential Information",
				Text: "Receiving Party's obligations under this Agreement do not extend to information that is: " +
					"(a) publicly known at the time of disclosure or subsequently becomes publicly known through no fault of the Receiving Party; " +
					"(b) discovered or created by the Receiving Party before disclosure by Disclosing Party; " +
					"(c) learned by the Receiving Party through legitimate means other than from the Disclosing Party or Disclosing Party's representatives; " +
					"or (d) is disclosed by Receiving Party with Disclosing Party's prior written approval.",
				Entities: []Entity{
					{Name: "Receiving Party", Type: "Party"},
					{Name: "Disclosing Party", Type: "Party"},
				},
			},
			{
				ID:    "clause-3",
				Title: "Obligations of Receiving Party",
				Text: "The Receiving Party shall hold and maintain the Confidential Information in strictest confidence for the sole and exclusive benefit of the Disclosing Party. " +
					"The Receiving Party shall carefully restrict access to Confidential Information to employees, contractors, and third parties as is reasonably required and shall require those persons to sign nondisclosure restrictions at least as protective as those in this Agreement.",
				Entities: []Entity{
					{Name: "Receiving Party", Type: "Party"},
					{Name: "Disclosing Party", Type: "Party"},
					{Name: "hold and maintain Confidential Information", Type: "Obligation"},
				},
			},
			{
				ID:    "clause-4",
				Title: "Term",
				Text: "The nondisclosure provisions of this Agreement shall survive the termination of this Agreement and the Receiving Party's duty to hold Confidential Information in confidence shall remain in effect until the Confidential Information no longer qualifies as a trade secret or until Disclosing Party sends Receiving Party written notice releasing Receiving Party from this Agreement, whichever occurs first. " +
					"The agreement is effective as of January 1, 2025.",
				Entities: []Entity{
					{Name: "January 1, 2025", Type: "Date"},
					{Name: "termination", Type: "Event"},
				},
			},
			{
				ID:    "clause-5",
				Title: "Governing Law",
				Text: "This Agreement shall be governed by and construed in accordance with the laws of the State of California, without regard to its conflict of laws principles. " +
					"Any legal action or proceeding arising under this Agreement will be brought exclusively in the federal or state courts located in San Francisco, California.",
				Entities: []Entity{
					{Name: "State of California", Type: "Jurisdiction"},
					{Name: "San Francisco, California", Type: "Jurisdiction"},
				},
			},
			{
				ID:    "clause-6",
				Title: "Indemnification",
				Text: "The Receiving Party agrees to indemnify, defend, and hold harmless the Disclosing Party from any and all claims, damages, losses, liabilities, costs, and expenses (including reasonable attorneys' fees) arising from any breach of this Agreement by the Receiving Party or its representatives. " +
					"This indemnification is uncapped and applies to all forms of damages, including direct, indirect, consequential, and punitive damages.",
				Entities: []Entity{
					{Name: "Receiving Party", Type: "Party"},
					{Name: "Disclosing Party", Type: "Party"},
					{Name: "indemnify, defend, and hold harmless", Type: "Obligation"},
					{Name: "uncapped", Type: "Amount"},
				},
			},
		},
	}
}
