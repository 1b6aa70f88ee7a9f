package chunker

import "strings"

// Lines splits content into its lines, one chunk per line.
// A line ends at "\n" or "\r\n"; the final line ending is optional, so a trailing newline does
// not produce an empty last chunk. Lines are otherwise returned untouched and in order,
// including empty interior lines. Empty content yields no chunks.
func Lines(content string) []string {
	var lines []string
	for content != "" {
		i := strings.IndexByte(content, '\n')
		if i < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, strings.TrimSuffix(content[:i], "\r"))
		content = content[i+1:]
	}
	return lines
}
