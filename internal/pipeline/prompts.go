package pipeline

import (
	"fmt"
	"strings"
)

// Prompt templates carry the extraction contract: strict JSON with double
// quotes, explicit nulls for missing values, at most ten materials, and
// an optional inclusion filter rendered from the hint-list. The service
// is instructed, not guaranteed, to honor all of this; the repair parser
// and result validation absorb the difference.

const candidatePrompt = `You are a scientific reading assistant. From the text below, list material names
(compounds, alloys, doped variants like "Bi2Te3", "SnSe:Na", "PbTe-AgSbTe2", "TiS2", "PEDOT:PSS", etc.)
that have ANY thermoelectric property mentioned close by (e.g., ZT, Seebeck S, electrical conductivity σ,
resistivity ρ, power factor PF, thermal conductivity κ).

Rules:
- Only include materials for which at least one thermo property is discussed.
- Keep names as they appear (including dopants/phase labels when relevant).
- Return a JSON object with a single array "materials".
- Deduplicate.
- Limit to the first %d items.

Return JSON:
{
  "materials": ["...", "..."]
}

Text:
%s`

const thermoPrompt = `You are a research extraction agent for thermoelectric materials.
%sExtract per-material properties:
- name only, nothing extra string labels.
- ZT (figure of merit)
- σ (electrical conductivity)
- S (Seebeck coefficient)
- PF (power factor)
- κ (thermal conductivity)
- ρ (electrical resistivity)

For each property, extract numeric values along with temperature and units if mentioned.

Instructions:
- Set missing values to null strictly.
- Only include materials name nothing extra string labels.
- Don't do any calculation or unit conversion on your own.
- If multiple values exist, return all of them as separate dictionary entries.
- If more than 10 materials are found, include only the first 10.
- All field names and string values must use valid JSON syntax (double quotes).
- Keep numerical values unquoted (i.e., not strings).
- Nothing else should be included in the output strictly.

Return structured JSON:
{
  "materials": [
    {
      "name": "...",
      "zt_values": [{"value": ..., "ZT_temperature": ..., "ZT_temperature_unit": "..."}],
      "electrical_conductivity": [{"σ_value": ..., "σ_unit": "...", "σ_Temperature": "...", "σ_Temp_unit": "..."}],
      "electrical_resistivity": [{"ρ_value": ..., "ρ_unit": "...", "ρ_Temperature": "...", "ρ_Temp_unit": "..."}],
      "seebeck_coefficient": [{"S_value": ..., "S_unit": "...", "S_Temperature": "...", "S_Temp_unit": "..."}],
      "power_factor": [{"PF_value": ..., "PF_unit": "...", "PF_Temperature": "...", "PF_Temp_unit": "..."}],
      "thermal_conductivity": [{"κ_value": ..., "κ_unit": "...", "κ_Temperature": "...", "κ_Temp_unit": "..."}]
    }
  ]
}

Text:
%s`

const structurePrompt = `You are a structural extraction agent for thermoelectric materials.
%sFor each material, extract:
- name only, nothing extra string labels.
- compound_type, crystal_structure, lattice_structure
- lattice_parameters a, b, c with unit
- space_group
- doping_type and list of dopants
- processing_method

Instructions:
- Set missing values to null strictly.
- Only include materials name nothing extra string labels.
- If more than 10 materials are found, include only the first 10.
- All field names and string values must use valid JSON syntax (double quotes).
- Nothing else should be included in the output strictly.

Return JSON:
{
  "materials": [
    {
      "name": "...",
      "compound_type": "<type|null>",
      "crystal_structure": "<structure|null>",
      "lattice_structure": "<structure|null>",
      "lattice_parameters": {
        "a": <number|null>, "b": <number|null>, "c": <number|null>
      },
      "unit": "<unit|null>",
      "space_group": "<group|null>",
      "doping": {
        "doping_type": "<type|null>",
        "dopants": [<strings>]
      },
      "processing_method": "<string|null>"
    }
  ]
}

Text:
%s`

const tablePrompt = `You are a scientific table extraction agent working on thermoelectric materials.
%sBelow is a collection of tables and their captions from a scientific paper.

Extract all materials mentioned across the tables and return the following properties for each:

Thermoelectric:
- ZT (figure of merit)
- Seebeck coefficient (S)
- Electrical conductivity (σ)
- Electrical resistivity (ρ)
- Power factor (PF)
- Thermal conductivity (κ)

Structural:
- compound_type
- crystal_structure
- lattice_structure
- lattice parameters: a, b, c, with unit
- space_group
- doping_type and list of dopants
- processing_method

Instructions:
- Set missing values to null strictly.
- Only include materials name nothing extra string labels.
- If more than 10 materials are found, include only the first 10.
- All field names and string values must use valid JSON syntax (double quotes).
- Nothing else should be included in the output strictly.

Return structured JSON with a top-level "materials" array where each entry
combines the thermoelectric observation lists and the structural fields.

All missing values must be explicitly set as null strictly.

### Tables and Captions:
%s`

// thermoHint renders the inclusion filter for the thermo stage.
func thermoHint(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf(
		"Only extract entries for the following materials (ignore others unless name clearly matches variants): %s.\n",
		quoteNames(names),
	)
}

// structureHint renders the inclusion filter for the structural stage.
func structureHint(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("Only extract structural properties for the following materials: %s.\n", quoteNames(names))
}

// tableHint renders the inclusion filter for the table stage.
func tableHint(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("Only extract materials among the following: %s.\n", quoteNames(names))
}

func quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = `"` + name + `"`
	}
	return strings.Join(quoted, ", ")
}
