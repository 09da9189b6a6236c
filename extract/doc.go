// Package extract produces raw document text from OCR results.
//
// An OCR result is a JSON file whose text lives at analyzeResult.content.
// OCRDirectory resolves uploaded files onto such results kept in a directory.
package extract
