// Package vision sends recipe images to an OpenAI-compatible multimodal chat
// completions endpoint and returns the model's text.
//
// One request is made per image. The image travels inline as a base64 data
// URL next to the text prompt. Requests are never retried: a failed analysis
// fails the image and the pipeline moves on.
package vision
