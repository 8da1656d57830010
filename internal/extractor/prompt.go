package extractor

import "fmt"

const promptTemplate = `You are a code analysis expert. Analyze the following source file and identify every function in it, including class and struct methods.

File path: %s

Source:
` + "```" + `
%s
` + "```" + `

Return a JSON array where each element has:
- "function_name": the function's name
- "start_line": first line of the function (1-indexed)
- "end_line": last line of the function (inclusive)

Return only the JSON array with no other text. If the file contains no functions, return [].`

func buildPrompt(path, content string) string {
	return fmt.Sprintf(promptTemplate, path, content)
}
