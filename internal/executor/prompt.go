package executor

// DefaultSystemPromptTemplate is the default system-prompt template
// rendered by Update-State (spec.md §4.I) against executor_state. The
// original C++ implementation loads its equivalent from a
// "mentals_system.prompt" resource file (central_executive.cpp); that
// file is a runtime asset, not source, so it isn't part of this
// module's grounding material. This template carries the same
// contract: it must reference every state key Update-State populates
// ({{instruction_name}}, {{instruction}}, {{instructions}},
// {{instruction_call_few_shot}}, {{short_term_memory}}) so a caller
// that doesn't supply its own template still gets a working agent.
const DefaultSystemPromptTemplate = `You are an autonomous agent currently executing the instruction "{{instruction_name}}".

Your task:
{{instruction}}

You may recall relevant facts from short-term memory:
{{short_term_memory}}

You can call the following native tools and instructions. Each is described below as
{"name": ..., <parameter descriptions>}. To call one, respond with a single fenced JSON
block of the same shape, followed immediately by the literal token <<CALL>>:

{{instructions}}

{{instruction_call_few_shot}}
When you are done with this instruction, include the literal token <<RETURN>> anywhere
in your response.`
