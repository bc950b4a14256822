package services

import "github/itish2003/cricketbot/models"

// ChunkDocument splits doc.Content into windows of chunkSize bytes. Every
// chunk after the first also re-includes the overlap bytes preceding its
// nominal start; the nominal start always advances by chunkSize, so overlap
// widens chunks rather than adding more of them. A negative overlap counts
// as zero.
func ChunkDocument(doc models.RawDocument, docIndex, chunkSize, overlap int) []models.Chunk {
	if chunkSize <= 0 {
		return nil
	}
	overlap = max(overlap, 0)

	content := doc.Content
	length := len(content)
	meta := models.ChunkMetadata{
		Title:     doc.Title,
		Summary:   doc.Summary,
		SourceURL: doc.SourceURL,
	}

	chunks := make([]models.Chunk, 0, (length+chunkSize-1)/chunkSize)
	for start := 0; start < length; start += chunkSize {
		end := min(start+chunkSize, length)
		from := start
		if start != 0 {
			from = max(start-overlap, 0)
		}
		chunks = append(chunks, models.Chunk{
			Content:    content[from:end],
			ChunkIndex: len(chunks) + 1,
			DocIndex:   docIndex,
			Metadata:   meta,
		})
	}
	return chunks
}
