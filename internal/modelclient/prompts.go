package modelclient

// ClassificationPrompt asks the model for a bare yes/no verdict. The exact
// text participates in cache fingerprints, so changing it invalidates every
// cached classification.
const ClassificationPrompt = `Is this document an invoice? Please respond with only "yes" or "no".`

// ExtractionPrompt requests the fixed JSON shape the pipeline parses.
// Like ClassificationPrompt, its exact bytes are part of the cache key.
const ExtractionPrompt = `Extract the following information from this invoice and output it in this JSON format:
{
    "customerName": "string",
    "vendorName": "string",
    "invoiceNumber": "string",
    "invoiceDate": "YYYY-MM-DD",
    "dueDate": "YYYY-MM-DD",
    "totalAmount": "string",
    "currency": "string (e.g. USD, EUR, GBP)",
    "lineItems": [
        {
            "description": "string",
            "quantity": "string",
            "unitPrice": "string",
            "amount": "string"
        }
    ]
}`
