package descriptions

// Tool descriptions with practical examples and use cases

const (
	ExtractDescription = `Process a Form ADT-1 (auditor appointment) PDF end to end.

**When to use:** A company has filed Form ADT-1 and you need its structured data and a plain-language summary of the appointment.

**What it does:** Reads the form fields, maps them to the fixed record (company, auditor, appointment period), OCRs every embedded attachment, asks the language model for a summary of the form and one for the attachments, then writes data.json and summary.txt next to the PDF.

**Examples:**
• Process a specific filing: "Extract /filings/2024/adt1.pdf"
• Process the default directory: call with no path to use the first PDF found there

**Notes:** Attachments that cannot be read are skipped and reported; the run still succeeds. Existing output files are overwritten.`

	FormFieldsDescription = `List the raw form fields and embedded files of a PDF.

**When to use:** A filing maps to empty values and you need to see the field names the PDF actually carries.

**What it returns:** JSON with the fully qualified field names (for example data[0].FormADT1_Dtls[0].Page1[0].Subform1[0].CIN_C[0]), their values, and the index and file name of each embedded file.

**Notes:** Nothing is written and no model is called.`

	MapFieldsDescription = `Map the form fields of a Form ADT-1 PDF to the structured record without summarizing it.

**When to use:** You only need the structured data, or the model is unavailable.

**What it returns:** The same JSON document that data.json would contain, with every key present in a fixed order. Missing fields are empty strings.

**Notes:** Nothing is written and no model is called.`
)
