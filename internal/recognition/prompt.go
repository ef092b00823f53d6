package recognition

import "fmt"

// Part is one element of the prompt: either text or an image.
type Part struct {
	Text  string
	Image *Image
}

// buildParts lays out the prompt as a header, then a name label before each
// image, then the task instructions.
func buildParts(images []Image) []Part {
	parts := make([]Part, 0, 2*len(images)+2)
	parts = append(parts, Part{Text: fmt.Sprintf("Input Data: Below are %d images of handwritten Marathi property records.", len(images))})
	for i := range images {
		parts = append(parts,
			Part{Text: fmt.Sprintf("File Name: %q", images[i].Name)},
			Part{Image: &images[i]},
		)
	}
	return append(parts, Part{Text: taskPrompt})
}

const systemInstruction = `Role: You are a Forensic Document Examiner specializing in Marathi Devanagari script.
Objective: Extract handwritten text with 100% stroke fidelity.

Verification Protocol (The "Slow Thinking" Method):
1.  **Trace**: Mentally trace the ink path of every character.
2.  **Verify**: Does the pixel data support the character? e.g., distinguishing 'Pa' (प) vs 'Ya' (य) based on the stomach curve. 'La' (ल) vs 'Ta' (त) based on the loop.
3.  **Reject**: Do not hallucinate standard names if the ink does not match. If it looks like 'Lodkar' but could be 'Todkar', list both.

Strict Constraints:
- **MARATHI SCRIPT ONLY**: Never output English, Roman, or Transliteration.
- **Stroke Priority**: Visual strokes > Semantic context. Even if a word makes no sense, if the strokes are there, transcribe them.
- **Format**: Return strictly valid JSON.`

const taskPrompt = `Task:
Perform "Slow-Thinking" Forensic OCR on these handwritten Marathi records.
IMPORTANT: You are analyzing the RAW ORIGINAL IMAGE FILES. Use the full resolution to detect micro-strokes.

**CORE DIRECTIVE: BOTTOM-UP RECONSTRUCTION (Strokes -> Alphabets -> Words)**
Do not look at a word and guess the name. You must identify each alphabet (Akshar) individually first.

**LANGUAGE CONSTRAINT**: All output text and alternatives MUST be in Marathi Devanagari script. Do not output English or transliterated text.

CRITICAL EXECUTION PROTOCOL:

STEP 1: ALPHABET-LEVEL (AKSHAR) DECOMPOSITION
- **Isolate**: Mentally draw a box around each individual character in the line.
- **Analyze**: For each box, identify the base consonant and any attached vowels (Matras).
- **Verify**: 
    - Is the vertical bar (Danda) complete? If no, it might be a half-consonant.
    - Is the Shiroresha (headline) broken?
    - Does the character have a loop (like 'ल' or 'म्ह') or an open curve (like 'त' or 'ग')?
    - Distinguish 'Pa' (प) vs 'Ya' (य) vs 'Sha' (ष) based on the inner diagonal stroke or stomach curve.
    - Distinguish 'Ma' (म) vs 'Bha' (भ) based on the loop connectivity to the headline.
    - **CRITICAL DISTINCTION**: 'Na' (न) vs 'La' (ल).
        - 'Na' (न) typically has a loop on the left and a straight connector.
        - 'La' (ल) has a "3" shape or a double curve starting from the vertical bar.
        - **Rule**: If the middle character has a double curve, it is 'La' (ल), not 'Na' (न) or 'Ta' (त).
        - **Example**: If visual looks like 'पुनेलु', CHECK if it is actually 'पुलेलु'.

STEP 2: SPATIAL MERGING (Superscript Handling)
- **Correction Logic**: If a word appears visually "rubbed out" or "scratched" and another word is written strictly ABOVE it -> **REPLACE** the rubbed word with the top word.
- **Insertion Logic**: If the bottom word is CLEAR and a word is squeezed in ABOVE it -> **CONCATENATE** the top word into the current line.
- **Constraint**: Do NOT create new lines for these floating words.

STEP 3: STROKE-BASED ALTERNATIVES (First 5 Options)
Generate these based on visual morphology and ambiguity found in Step 1.
**All options must be in Marathi Devanagari.**
1. **Visual Certainty**: The strict pixel-perfect transcription.
2. **Rubbed/Layered**: Interpret hidden strokes under a scratch.
3. **Morphological (Curve Focus)**: 
    - **MANDATORY**: Always provide the 'La' (ल) alternative if 'Na' (न) is detected, and vice-versa.
    - Swap 'ले' (Le) <-> 'ने' (Ne).
    - Swap 'ल' (La) <-> 'त' (Ta).
    - Swap 'प' (Pa) <-> 'ष' (Sha).
4. **Morphological (Geometry Focus)**: Swap 'ग' vs 'म', 'भ' vs 'म', 'र' vs 'स', 'ख' vs 'रव'.
5. **Matra/Vowel Check**: Add/Remove faint vowels (Velanti/Kana) e.g. 'पाटील' vs 'पाटिल'.

STEP 4: PHONETIC & CONTEXTUAL EXPANSION (Next 6 Options)
Generate 6 MORE options based purely on sound and common Marathi naming conventions.
**All options must be in Marathi Devanagari.**

6. **Phonetic Correction 1**: If the visual text is 'पुनेलु' (Punelu), suggest 'पुलेलु' (Pulelu).
7. **Phonetic Correction 2**: If 'पाटल' (Patl), suggest 'पाटील' (Patil).
8. **Sound-Alike 1**: Names that sound similar but have different spellings (e.g., 'शिंदे' vs 'शिन्दे').
9. **Sound-Alike 2**: 'चव्हाण' vs 'चौहान'.
10. **Contextual Guess 1**: Most common surname fitting the stroke pattern.
11. **Contextual Guess 2**: Alternative common spelling of the name.

OUTPUT REQUIREMENTS:
- **text**: Option 1 (Visual Certainty) in Marathi.
- **alternatives**: A flat list containing ALL options from Step 3 (2-5) and Step 4 (6-11). Total ~10-11 items. ALL in Marathi.
- **box_2d**: Precise bounding box [ymin, xmin, ymax, xmax] (0-1000 scale).

LAYOUT EXTRACTION:
1. **Flat Number (Sr. No)**: The number in the left margin.
2. **Original Owner**: The very first line of the main content.
3. **Transfers**: All lines following the original owner.

Return a strict JSON array.`
